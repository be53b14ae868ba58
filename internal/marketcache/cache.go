// Package marketcache is a tiered cache for market data payloads: a hot
// in-process tier for sub-minute reuse and a warm redis tier that bridges
// longer gaps. Reads can opt into stale entries; a miss is an expected
// outcome, not an error.
package marketcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier identifies a cache tier.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
)

// DefaultTierOrder is the lookup order when the caller does not specify one.
var DefaultTierOrder = []Tier{TierHot, TierWarm}

// Entry is a cache hit.
type Entry struct {
	Payload   []byte
	Tier      Tier
	Stale     bool
	Source    string
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// ReadOptions control tier order and staleness tolerance for Get.
type ReadOptions struct {
	Tiers      []Tier
	AllowStale bool
}

type envelope struct {
	Payload   json.RawMessage `json:"payload"`
	Source    string          `json:"source,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// warmStore abstracts the persistent tier so the cache is testable without
// a live redis.
type warmStore interface {
	get(ctx context.Context, key string) (*envelope, error)
	set(ctx context.Context, key string, env envelope) error
	del(ctx context.Context, key string) error
}

// Store is the tiered cache.
type Store struct {
	mu   sync.RWMutex
	hot  map[string]envelope
	warm warmStore
	now  func() time.Time
}

// New builds a store backed by redis for the warm tier. A nil client keeps
// the warm tier in process, which is how tests and redis-less deployments
// run.
func New(client *redis.Client) *Store {
	var warm warmStore
	if client != nil {
		warm = &redisWarm{client: client}
	} else {
		warm = newMemoryWarm()
	}
	return &Store{
		hot:  make(map[string]envelope),
		warm: warm,
		now:  time.Now,
	}
}

// Get returns the freshest entry for key across the requested tiers, or nil
// on a miss. Expired entries are returned only with AllowStale.
func (s *Store) Get(ctx context.Context, key string, opts ReadOptions) (*Entry, error) {
	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTierOrder
	}
	now := s.now()

	for _, tier := range tiers {
		switch tier {
		case TierHot:
			s.mu.RLock()
			env, ok := s.hot[key]
			s.mu.RUnlock()
			if !ok {
				continue
			}
			if entry := envelopeEntry(env, TierHot, now, opts.AllowStale); entry != nil {
				return entry, nil
			}
		case TierWarm:
			env, err := s.warm.get(ctx, key)
			if err != nil {
				return nil, err
			}
			if env == nil {
				continue
			}
			if entry := envelopeEntry(*env, TierWarm, now, opts.AllowStale); entry != nil {
				return entry, nil
			}
		}
	}
	return nil, nil
}

// Set writes payload into one tier with the given TTL.
func (s *Store) Set(ctx context.Context, key string, payload []byte, tier Tier, ttl time.Duration, source string) error {
	now := s.now()
	env := envelope{
		Payload:   json.RawMessage(payload),
		Source:    source,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if tier == TierHot {
		s.mu.Lock()
		s.hot[key] = env
		s.mu.Unlock()
		return nil
	}
	return s.warm.set(ctx, key, env)
}

// Clear removes key from every tier.
func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.hot, key)
	s.mu.Unlock()
	return s.warm.del(ctx, key)
}

func envelopeEntry(env envelope, tier Tier, now time.Time, allowStale bool) *Entry {
	stale := !env.ExpiresAt.After(now)
	if stale && !allowStale {
		return nil
	}
	return &Entry{
		Payload:   env.Payload,
		Tier:      tier,
		Stale:     stale,
		Source:    env.Source,
		UpdatedAt: env.UpdatedAt,
		ExpiresAt: env.ExpiresAt,
	}
}
