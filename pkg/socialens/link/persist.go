package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/records"
)

// MappingStore persists a synthesized mapping between runs.
type MappingStore interface {
	// LoadMapping returns the persisted mapping; ok is false when none exists.
	LoadMapping(ctx context.Context) (m []records.Mapping, ok bool, err error)
	SaveMapping(ctx context.Context, m []records.Mapping) error
}

// FileMappingStore keeps the mapping in a JSON array file.
type FileMappingStore struct {
	Path string
}

// LoadMapping implements MappingStore.
func (f FileMappingStore) LoadMapping(ctx context.Context) ([]records.Mapping, bool, error) {
	if _, err := os.Stat(f.Path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	m, err := records.LoadMappings(f.Path)
	if errors.Is(err, internalerr.ErrEmptyInput) {
		return []records.Mapping{}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load mapping: %w", err)
	}
	return m.Items, true, nil
}

// SaveMapping implements MappingStore. The file is replaced atomically.
func (f FileMappingStore) SaveMapping(ctx context.Context, m []records.Mapping) error {
	if m == nil {
		m = []records.Mapping{}
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create mapping dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

// Resolution is the mapping a join should use.
type Resolution struct {
	Mappings []records.Mapping
	Source   Source
}

// Resolver picks the mapping for a run: a provided mapping wins, then a
// persisted one, and only then is a new one synthesized and persisted.
type Resolver struct {
	Store    MappingStore
	Strategy Strategy
	Logger   *slog.Logger
}

// Resolve returns the mapping and its source.
func (r *Resolver) Resolve(ctx context.Context, provided []records.Mapping, comments []records.Comment, videos []records.Video) (Resolution, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(provided) > 0 {
		return Resolution{Mappings: provided, Source: SourceProvided}, nil
	}

	switch r.Strategy {
	case StrategySharedUser:
		m := MappingBySharedUser(comments, videos)
		logger.Info("[Resolver] Mapping derived from shared user ids", slog.Int("entries", len(m)))
		return Resolution{Mappings: m, Source: SourceSharedUser}, nil
	case StrategyRoundRobin, "":
	default:
		return Resolution{}, fmt.Errorf("mapping strategy %q: %w", r.Strategy, internalerr.ErrInvalidConfig)
	}

	if r.Store != nil {
		m, ok, err := r.Store.LoadMapping(ctx)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			logger.Info("[Resolver] Reusing persisted mapping", slog.Int("entries", len(m)))
			return Resolution{Mappings: m, Source: SourceSynthesized}, nil
		}
	}

	m := BuildMapping(comments, videos)
	if r.Store != nil {
		if err := r.Store.SaveMapping(ctx, m); err != nil {
			return Resolution{}, fmt.Errorf("persist mapping: %w", err)
		}
	}
	logger.Warn("[Resolver] Synthesized round-robin mapping; comment→video links are placeholders",
		slog.Int("entries", len(m)))
	return Resolution{Mappings: m, Source: SourceSynthesized}, nil
}
