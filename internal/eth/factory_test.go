package eth

import (
	"testing"
	"time"
)

func TestFactory_WrapsLimiterAndValidates(t *testing.T) {
	if _, err := NewProvider("  ", 1, 0, 0); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	p, err := NewProvider("http://localhost:8545", 5, 3, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	rl, ok := p.(RLProvider)
	if !ok {
		t.Fatalf("expected RLProvider wrapper, got %T", p)
	}
	hp := rl.p.(*httpProvider)
	if hp.maxRetries != 3 || hp.backoffBase != 50*time.Millisecond {
		t.Fatalf("retry tuning not applied: %+v", hp)
	}
}
