package classify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyOptions configures a ValkeyCache.
type ValkeyOptions struct {
	Address  string
	Password string
	TLS      bool
	TTL      time.Duration
}

// ValkeyCache is a Cache shared across runs and processes.
type ValkeyCache struct {
	client valkey.Client
	ttl    time.Duration
}

// NewValkeyCache connects and pings the server.
func NewValkeyCache(ctx context.Context, opts ValkeyOptions) (*ValkeyCache, error) {
	clientOpts := valkey.ClientOption{
		InitAddress:      []string{opts.Address},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if opts.TLS {
		clientOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &ValkeyCache{client: client, ttl: ttl}, nil
}

// Get implements Cache.
func (v *ValkeyCache) Get(ctx context.Context, key string) (Result, bool, error) {
	raw, err := v.client.Do(ctx, v.client.B().Get().Key(key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return r, true, nil
}

// Set implements Cache.
func (v *ValkeyCache) Set(ctx context.Context, key string, r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	cmd := v.client.B().Set().Key(key).Value(string(data)).ExSeconds(int64(v.ttl / time.Second)).Build()
	return v.client.Do(ctx, cmd).Error()
}

// Close closes the connection.
func (v *ValkeyCache) Close() {
	v.client.Close()
}
