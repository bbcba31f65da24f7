// Package cache provides the key-value storage shared by the address
// classifier (permanent facts) and the holder ledger (time-bounded results).
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Store is a byte-oriented key-value store with per-entry expiry.
// A ttl of zero stores the entry without expiry. Get reports absent and
// expired entries identically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EOAKey is the fact key for the EOA classification of addr.
func EOAKey(addr common.Address) string {
	return "is_eoa_" + strings.ToLower(addr.Hex())
}

// HoldersKey is the result key for the holder map of token.
func HoldersKey(token common.Address) string {
	return "holders_" + strings.ToLower(token.Hex())
}
