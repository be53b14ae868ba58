// Package legs keeps wheel-strategy option leg quotes attached to their
// underlyings: it fetches fresh per-symbol legs, validates them, and splices
// in cached legs when the bridge momentarily returns nothing, so a transient
// hiccup never erases a previously-displayed yield.
package legs

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/dfreeman-dev/wheel-ledger/internal/instrument"
	"github.com/dfreeman-dev/wheel-ledger/internal/marketcache"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

const (
	defaultHotTTL  = time.Minute
	defaultWarmTTL = 6 * time.Hour
	cacheSource    = "bridge"
)

// Fetcher retrieves fresh option legs from the market data bridge. The
// bridge client itself lives outside the engine.
type Fetcher interface {
	FetchLiveOptions(ctx context.Context, symbols []string, targetWinProb int, dteWindow string) ([]models.LiveOptionSnapshot, error)
}

// Cache is the subset of the tiered market cache the synchronizer needs.
type Cache interface {
	Get(ctx context.Context, key string, opts marketcache.ReadOptions) (*marketcache.Entry, error)
	Set(ctx context.Context, key string, payload []byte, tier marketcache.Tier, ttl time.Duration, source string) error
}

// CachedLegs is the cache payload: the last known valid legs for one
// symbol+window+win-probability key.
type CachedLegs struct {
	Symbol string            `json:"symbol"`
	CC     *models.OptionLeg `json:"cc,omitempty"`
	CSP    *models.OptionLeg `json:"csp,omitempty"`
}

// Synchronizer produces normalized, gap-bridged snapshots ready for the
// market data reconciler. It does not touch the position table itself.
type Synchronizer struct {
	fetcher Fetcher
	cache   Cache
	hotTTL  time.Duration
	warmTTL time.Duration
}

// NewSynchronizer wires a synchronizer. Zero TTLs take the defaults
// (one minute hot, six hours warm).
func NewSynchronizer(fetcher Fetcher, cache Cache, hotTTL, warmTTL time.Duration) *Synchronizer {
	if hotTTL <= 0 {
		hotTTL = defaultHotTTL
	}
	if warmTTL <= 0 {
		warmTTL = defaultWarmTTL
	}
	return &Synchronizer{fetcher: fetcher, cache: cache, hotTTL: hotTTL, warmTTL: warmTTL}
}

// BuildKey derives the cache key for one symbol and fetch parameters.
func BuildKey(symbol, dteWindow string, targetWinProb int) string {
	window := dteWindow
	if window == "" {
		window = "default"
	}
	return "live-options:" + instrument.NormalizeSymbol(symbol) + ":" + window + ":" + strconv.Itoa(targetWinProb)
}

// HasValidLeg reports whether a fetched leg is usable: positive strike,
// positive premium, and an expiration.
func HasValidLeg(leg *models.OptionLeg) bool {
	if leg == nil {
		return false
	}
	if leg.Strike == nil || leg.Strike.Sign() <= 0 {
		return false
	}
	if leg.Premium == nil || leg.Premium.Sign() <= 0 {
		return false
	}
	return leg.Expiration != ""
}

// Refresh fetches fresh legs for the symbols, splices cached legs into any
// gaps, and writes fresh results through to both cache tiers. The returned
// snapshots are ready to hand to the reconciler.
func (s *Synchronizer) Refresh(ctx context.Context, symbols []string, targetWinProb int, dteWindow string) ([]models.LiveOptionSnapshot, error) {
	unique := dedupeSymbols(symbols)
	if len(unique) == 0 {
		return nil, nil
	}

	fetched, err := s.fetcher.FetchLiveOptions(ctx, unique, targetWinProb, dteWindow)
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		log.Printf("legs: bridge returned no results for %d symbols (winProb=%d window=%s)",
			len(unique), targetWinProb, dteWindow)
	}

	merged := make([]models.LiveOptionSnapshot, 0, len(fetched))
	for i := range fetched {
		snap := Normalize(fetched[i])
		if snap.Symbol == "" {
			continue
		}
		key := BuildKey(snap.Symbol, dteWindow, targetWinProb)
		hadFreshCC := snap.CC.Present
		hadFreshCSP := snap.CSP.Present

		cached := s.lookupCached(ctx, key)
		snap = MergeCached(snap, cached)

		if hadFreshCC || hadFreshCSP {
			s.writeThrough(ctx, key, snap)
		}
		merged = append(merged, snap)
	}
	return merged, nil
}

// Normalize uppercases the symbol and keeps only valid legs. Invalid or
// missing legs become absent patches so the reconciler leaves existing leg
// data untouched unless the cache can fill the gap.
func Normalize(snap models.LiveOptionSnapshot) models.LiveOptionSnapshot {
	out := models.LiveOptionSnapshot{
		Symbol:       instrument.NormalizeSymbol(snap.Symbol),
		CurrentPrice: snap.CurrentPrice,
	}
	if snap.CC.Present && HasValidLeg(snap.CC.Leg) {
		out.CC = models.SetLeg(snap.CC.Leg)
	}
	if snap.CSP.Present && HasValidLeg(snap.CSP.Leg) {
		out.CSP = models.SetLeg(snap.CSP.Leg)
	}
	return out
}

// MergeCached splices cached legs into a normalized snapshot's gaps. Pure:
// it never reads or writes any store.
func MergeCached(fresh models.LiveOptionSnapshot, cached *CachedLegs) models.LiveOptionSnapshot {
	if cached == nil {
		return fresh
	}
	if !fresh.CC.Present && cached.CC != nil {
		fresh.CC = models.SetLeg(cached.CC)
	}
	if !fresh.CSP.Present && cached.CSP != nil {
		fresh.CSP = models.SetLeg(cached.CSP)
	}
	return fresh
}

func (s *Synchronizer) lookupCached(ctx context.Context, key string) *CachedLegs {
	entry, err := s.cache.Get(ctx, key, marketcache.ReadOptions{
		Tiers: []marketcache.Tier{marketcache.TierHot, marketcache.TierWarm},
	})
	if err != nil {
		log.Printf("legs: cache read failed for %s: %v", key, err)
		return nil
	}
	if entry == nil {
		return nil
	}
	var cached CachedLegs
	if err := json.Unmarshal(entry.Payload, &cached); err != nil {
		return nil
	}
	return &cached
}

func (s *Synchronizer) writeThrough(ctx context.Context, key string, snap models.LiveOptionSnapshot) {
	payload, err := json.Marshal(CachedLegs{Symbol: snap.Symbol, CC: snap.CC.Leg, CSP: snap.CSP.Leg})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, marketcache.TierHot, s.hotTTL, cacheSource); err != nil {
		log.Printf("legs: hot cache write failed for %s: %v", key, err)
	}
	if err := s.cache.Set(ctx, key, payload, marketcache.TierWarm, s.warmTTL, cacheSource); err != nil {
		log.Printf("legs: warm cache write failed for %s: %v", key, err)
	}
}

func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := instrument.NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
