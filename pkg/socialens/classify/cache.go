package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
)

// Cache stores classifier results by key.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, r Result) error
}

// Cached memoizes a classifier. Scoring is idempotent for the same text, so
// results can be reused across runs. Cache failures are logged and never
// fail the classification.
type Cached struct {
	Inner     Classifier
	Cache     Cache
	Namespace string
	Logger    *slog.Logger
}

// Classify implements Classifier.
func (c *Cached) Classify(ctx context.Context, text string) (Result, error) {
	key := CacheKey(c.Namespace, text)

	if r, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.logger().Warn("[ClassifierCache] Lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if ok {
		return r, nil
	}

	r, err := c.Inner.Classify(ctx, text)
	if err != nil {
		return Result{}, err
	}

	if err := c.Cache.Set(ctx, key, r); err != nil {
		c.logger().Warn("[ClassifierCache] Store failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return r, nil
}

func (c *Cached) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// CacheKey derives a stable cache key from a namespace and the text.
func CacheKey(namespace, text string) string {
	sum := sha256.Sum256([]byte(text))
	if namespace == "" {
		namespace = "socialens:verdict"
	}
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

// Get implements Cache.
func (m *MemoryCache) Get(ctx context.Context, key string) (Result, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.entries[key]
	return r, ok, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(ctx context.Context, key string, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = r
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
