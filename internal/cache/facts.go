package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/metrics"
)

// FactCache stores boolean facts that never change once observed.
type FactCache interface {
	Lookup(ctx context.Context, key string) (value bool, ok bool)
	Remember(ctx context.Context, key string, value bool)
}

// ResultCache stores JSON-encodable results for a bounded freshness window.
type ResultCache interface {
	Load(ctx context.Context, key string, dst interface{}) bool
	Store(ctx context.Context, key string, v interface{})
}

// Facts is a FactCache over a Store. Entries are written without expiry;
// a backend that expires them anyway only costs a re-read.
type Facts struct {
	store Store
}

func NewFacts(s Store) *Facts { return &Facts{store: s} }

func (f *Facts) Lookup(ctx context.Context, key string) (bool, bool) {
	b, ok, err := f.store.Get(ctx, key)
	if err != nil {
		logging.Logger().Warn("cache_get_failed", "component", "cache.facts", "key", key, "error", err.Error())
		ok = false
	}
	if ok && len(b) != 1 {
		ok = false
	}
	metrics.ObserveCache("fact", ok)
	if !ok {
		return false, false
	}
	return b[0] == '1', true
}

func (f *Facts) Remember(ctx context.Context, key string, value bool) {
	v := []byte{'0'}
	if value {
		v[0] = '1'
	}
	if err := f.store.Set(ctx, key, v, 0); err != nil {
		logging.Logger().Warn("cache_set_failed", "component", "cache.facts", "key", key, "error", err.Error())
	}
}

// Results is a ResultCache over a Store with a uniform TTL.
type Results struct {
	store Store
	ttl   time.Duration
}

func NewResults(s Store, ttl time.Duration) *Results { return &Results{store: s, ttl: ttl} }

func (r *Results) Load(ctx context.Context, key string, dst interface{}) bool {
	b, ok, err := r.store.Get(ctx, key)
	if err != nil {
		logging.Logger().Warn("cache_get_failed", "component", "cache.results", "key", key, "error", err.Error())
		ok = false
	}
	if ok {
		if err := json.Unmarshal(b, dst); err != nil {
			logging.Logger().Warn("cache_decode_failed", "component", "cache.results", "key", key, "error", err.Error())
			ok = false
		}
	}
	metrics.ObserveCache("result", ok)
	return ok
}

func (r *Results) Store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logging.Logger().Warn("cache_encode_failed", "component", "cache.results", "key", key, "error", err.Error())
		return
	}
	if err := r.store.Set(ctx, key, b, r.ttl); err != nil {
		logging.Logger().Warn("cache_set_failed", "component", "cache.results", "key", key, "error", err.Error())
	}
}
