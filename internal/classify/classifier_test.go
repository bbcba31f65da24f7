package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/cache"
)

type fakeCode struct {
	code  map[string]string
	err   error
	calls int
}

func (f *fakeCode) CodeAt(ctx context.Context, address string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if c, ok := f.code[address]; ok {
		return c, nil
	}
	return "0x", nil
}

var (
	wallet   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	contract = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestIsEOA_MissThenHitAgree(t *testing.T) {
	code := &fakeCode{code: map[string]string{contract.Hex(): "0x6080604052"}}
	c := New(code, cache.NewFacts(cache.NewMemoryStore(0)))
	ctx := context.Background()

	for _, tc := range []struct {
		addr common.Address
		want bool
	}{{wallet, true}, {contract, false}} {
		miss, err := c.IsEOA(ctx, tc.addr)
		if err != nil {
			t.Fatalf("miss: %v", err)
		}
		hit, err := c.IsEOA(ctx, tc.addr)
		if err != nil {
			t.Fatalf("hit: %v", err)
		}
		if miss != tc.want || hit != miss {
			t.Fatalf("%s: miss=%v hit=%v want %v", tc.addr.Hex(), miss, hit, tc.want)
		}
	}
	if code.calls != 2 {
		t.Fatalf("code reads=%d want 2 (one per address)", code.calls)
	}
}

func TestIsEOA_UsesPrepopulatedFact(t *testing.T) {
	facts := cache.NewFacts(cache.NewMemoryStore(0))
	facts.Remember(context.Background(), cache.EOAKey(contract), false)
	code := &fakeCode{}
	got, err := New(code, facts).IsEOA(context.Background(), contract)
	if err != nil || got || code.calls != 0 {
		t.Fatalf("got=%v err=%v calls=%d", got, err, code.calls)
	}
}

func TestIsEOA_ErrorNotCached(t *testing.T) {
	store := cache.NewMemoryStore(0)
	code := &fakeCode{err: errors.New("timeout")}
	c := New(code, cache.NewFacts(store))
	if _, err := c.IsEOA(context.Background(), wallet); err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 0 {
		t.Fatal("failed reads must not be cached")
	}
	code.err = nil
	if ok, err := c.IsEOA(context.Background(), wallet); err != nil || !ok {
		t.Fatalf("retry: ok=%v err=%v", ok, err)
	}
}

func TestEmptyCode(t *testing.T) {
	for in, want := range map[string]bool{"": true, "0x": true, " 0x ": true, "0x00": false, "0x60": false} {
		if got := emptyCode(in); got != want {
			t.Errorf("emptyCode(%q)=%v want %v", in, got, want)
		}
	}
}
