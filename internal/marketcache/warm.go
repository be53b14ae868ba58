package marketcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const warmKeyPrefix = "marketcache:warm:"

// staleGrace keeps expired warm entries readable for allow-stale lookups
// before redis drops them entirely.
const staleGrace = 24 * time.Hour

type redisWarm struct {
	client *redis.Client
}

func (r *redisWarm) get(ctx context.Context, key string) (*envelope, error) {
	data, err := r.client.Get(ctx, warmKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read warm cache entry: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// A corrupt entry is treated as a miss rather than poisoning reads.
		return nil, nil
	}
	return &env, nil
}

func (r *redisWarm) set(ctx context.Context, key string, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal warm cache entry: %w", err)
	}
	retention := time.Until(env.ExpiresAt) + staleGrace
	if err := r.client.Set(ctx, warmKeyPrefix+key, data, retention).Err(); err != nil {
		return fmt.Errorf("failed to write warm cache entry: %w", err)
	}
	return nil
}

func (r *redisWarm) del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, warmKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete warm cache entry: %w", err)
	}
	return nil
}

// memoryWarm is the in-process warm tier used when no redis is configured.
type memoryWarm struct {
	mu      sync.RWMutex
	entries map[string]envelope
}

func newMemoryWarm() *memoryWarm {
	return &memoryWarm{entries: make(map[string]envelope)}
}

func (m *memoryWarm) get(_ context.Context, key string) (*envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &env, nil
}

func (m *memoryWarm) set(_ context.Context, key string, env envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = env
	return nil
}

func (m *memoryWarm) del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
