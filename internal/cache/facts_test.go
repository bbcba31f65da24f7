package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/logging"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}

func TestKeys(t *testing.T) {
	a := common.HexToAddress("0xAbCdEf0000000000000000000000000000000001")
	if got := EOAKey(a); got != "is_eoa_0xabcdef0000000000000000000000000000000001" {
		t.Fatalf("EOAKey=%s", got)
	}
	if got := HoldersKey(a); got != "holders_0xabcdef0000000000000000000000000000000001" {
		t.Fatalf("HoldersKey=%s", got)
	}
}

func TestFacts_RoundTrip(t *testing.T) {
	f := NewFacts(NewMemoryStore(0))
	ctx := context.Background()
	if _, ok := f.Lookup(ctx, "is_eoa_x"); ok {
		t.Fatal("expected miss")
	}
	f.Remember(ctx, "is_eoa_x", true)
	f.Remember(ctx, "is_eoa_y", false)
	if v, ok := f.Lookup(ctx, "is_eoa_x"); !ok || !v {
		t.Fatalf("x: v=%v ok=%v", v, ok)
	}
	if v, ok := f.Lookup(ctx, "is_eoa_y"); !ok || v {
		t.Fatalf("y: v=%v ok=%v", v, ok)
	}
}

func TestFacts_CorruptValueIsMiss(t *testing.T) {
	s := NewMemoryStore(0)
	_ = s.Set(context.Background(), "k", []byte("true"), 0)
	if _, ok := NewFacts(s).Lookup(context.Background(), "k"); ok {
		t.Fatal("unexpected hit on corrupt value")
	}
}

func TestResults_RoundTripAndTTL(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewMemoryStore(0)
	s.now = func() time.Time { return now }
	r := NewResults(s, time.Hour)
	ctx := context.Background()

	in := map[string]string{"0x01": "100"}
	r.Store(ctx, "holders_t", in)
	var out map[string]string
	if !r.Load(ctx, "holders_t", &out) || out["0x01"] != "100" {
		t.Fatalf("load=%v", out)
	}
	now = now.Add(time.Hour)
	var stale map[string]string
	if r.Load(ctx, "holders_t", &stale) {
		t.Fatal("stale entry must be a miss")
	}
}

func TestCaches_BackendErrorsAreMisses(t *testing.T) {
	logging.DiscardLogging()
	ctx := context.Background()
	f := NewFacts(failingStore{})
	f.Remember(ctx, "k", true)
	if _, ok := f.Lookup(ctx, "k"); ok {
		t.Fatal("expected miss")
	}
	r := NewResults(failingStore{}, time.Minute)
	r.Store(ctx, "k", 1)
	var v int
	if r.Load(ctx, "k", &v) {
		t.Fatal("expected miss")
	}
}

func TestResults_UndecodableIsMiss(t *testing.T) {
	logging.DiscardLogging()
	s := NewMemoryStore(0)
	_ = s.Set(context.Background(), "k", []byte("{"), 0)
	var v map[string]int
	if NewResults(s, 0).Load(context.Background(), "k", &v) {
		t.Fatal("expected miss")
	}
}
