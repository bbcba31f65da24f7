// Package classify decides whether an address is an externally owned account.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/cache"
)

// CodeReader is the eth_getCode surface of eth.Provider.
type CodeReader interface {
	CodeAt(ctx context.Context, address string) (string, error)
}

// Classifier answers IsEOA from the fact cache, falling back to one code read.
// Deployed code never changes, so cached answers are never invalidated.
type Classifier struct {
	code  CodeReader
	facts cache.FactCache
}

func New(code CodeReader, facts cache.FactCache) *Classifier {
	return &Classifier{code: code, facts: facts}
}

// IsEOA reports whether addr has no code. Read failures are returned and not cached.
func (c *Classifier) IsEOA(ctx context.Context, addr common.Address) (bool, error) {
	key := cache.EOAKey(addr)
	if v, ok := c.facts.Lookup(ctx, key); ok {
		return v, nil
	}
	code, err := c.code.CodeAt(ctx, addr.Hex())
	if err != nil {
		return false, fmt.Errorf("code at %s: %w", addr.Hex(), err)
	}
	isEOA := emptyCode(code)
	c.facts.Remember(ctx, key, isEOA)
	return isEOA, nil
}

func emptyCode(code string) bool {
	c := strings.TrimSpace(code)
	return c == "" || c == "0x" || c == "0X"
}
