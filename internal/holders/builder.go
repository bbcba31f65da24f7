// Package holders resolves the live balances of every address seen in a
// token's Transfer history and measures top-10 concentration.
package holders

import (
	"bytes"
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/AIAleph/token_risk/internal/cache"
	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/scan"
	"github.com/AIAleph/token_risk/internal/score"
)

const (
	topN = 10

	// NoHoldersMessage is reported when no address holds a non-zero balance.
	NoHoldersMessage = "No holders found"
)

// Scanner produces the Transfer history of a token.
type Scanner interface {
	Scan(ctx context.Context, token common.Address, from, to uint64) *scan.Result
}

// BalanceReader returns the current balance of holder, 0 on failure.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, holder common.Address) *big.Int
}

type Holder struct {
	Address    common.Address `json:"address"`
	Balance    *big.Int       `json:"balance"`
	Percentage float64        `json:"percentage"`
}

// Concentration is the holder concentration report for one token.
type Concentration struct {
	TotalHolders    int        `json:"total_holders"`
	TotalSupply     *big.Int   `json:"total_supply"` // sum of observed balances
	Top10           []Holder   `json:"top10_holders"`
	Top10Percentage float64    `json:"top10_percentage"`
	Score           float64    `json:"score"`
	RiskLevel       score.Risk `json:"risk_level"`
	Error           string     `json:"error,omitempty"`
	FromCache       bool       `json:"from_cache"`
	Complete        bool       `json:"complete"`
	Gaps            []scan.Gap `json:"gaps,omitempty"`
}

// cachedHolders is the ResultCache payload.
type cachedHolders struct {
	Holders map[common.Address]*big.Int `json:"holders"`
	Gaps    []scan.Gap                  `json:"gaps,omitempty"`
}

type Builder struct {
	scanner  Scanner
	balances BalanceReader
	results  cache.ResultCache
	workers  int
}

type Option func(*Builder)

// WithWorkers bounds concurrent balance reads. 1 reads sequentially.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithResultCache enables caching of non-empty holder maps.
func WithResultCache(rc cache.ResultCache) Option {
	return func(b *Builder) { b.results = rc }
}

func New(s Scanner, balances BalanceReader, opts ...Option) *Builder {
	b := &Builder{scanner: s, balances: balances, workers: 1}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Analyze scans [from, to] and reports concentration. A cached holder map for
// token short-circuits the scan and balance reads.
func (b *Builder) Analyze(ctx context.Context, token common.Address, from, to uint64) *Concentration {
	if c, ok := b.Cached(ctx, token); ok {
		return c
	}
	return b.FromScan(ctx, b.scanner.Scan(ctx, token, from, to))
}

// Cached returns the concentration of a cached holder map, if any.
func (b *Builder) Cached(ctx context.Context, token common.Address) (*Concentration, bool) {
	if b.results == nil {
		return nil, false
	}
	var cached cachedHolders
	if !b.results.Load(ctx, cache.HoldersKey(token), &cached) || len(cached.Holders) == 0 {
		return nil, false
	}
	c := Summarize(cached.Holders, cached.Gaps)
	c.FromCache = true
	return c, true
}

// FromScan resolves balances for the participants of an existing scan.
func (b *Builder) FromScan(ctx context.Context, res *scan.Result) *Concentration {
	participants := res.Participants()
	held := b.Balances(ctx, res.Token, participants)
	logging.Logger().Info("holders_resolved",
		"component", "holders",
		"token", res.Token.Hex(),
		"participants", len(participants),
		"holders", len(held),
		"gaps", len(res.Gaps),
	)
	if len(held) > 0 && b.results != nil {
		b.results.Store(ctx, cache.HoldersKey(res.Token), cachedHolders{Holders: held, Gaps: res.Gaps})
	}
	return Summarize(held, res.Gaps)
}

// Balances reads one balance per address and keeps the non-zero ones.
func (b *Builder) Balances(ctx context.Context, token common.Address, addrs []common.Address) map[common.Address]*big.Int {
	var (
		mu  sync.Mutex
		out = make(map[common.Address]*big.Int, len(addrs))
		g   errgroup.Group
	)
	g.SetLimit(b.workers)
	for _, addr := range addrs {
		if addr == (common.Address{}) {
			continue
		}
		addr := addr
		g.Go(func() error {
			bal := b.balances.BalanceOf(ctx, token, addr)
			if bal == nil || bal.Sign() <= 0 {
				return nil
			}
			mu.Lock()
			out[addr] = bal
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Summarize computes the concentration of a holder map. Percentages are
// relative to the sum of the given balances.
func Summarize(held map[common.Address]*big.Int, gaps []scan.Gap) *Concentration {
	c := &Concentration{
		TotalSupply: new(big.Int),
		Top10:       []Holder{},
		Complete:    len(gaps) == 0,
		Gaps:        gaps,
	}
	list := make([]Holder, 0, len(held))
	for addr, bal := range held {
		if addr == (common.Address{}) || bal == nil || bal.Sign() <= 0 {
			continue
		}
		list = append(list, Holder{Address: addr, Balance: bal})
		c.TotalSupply.Add(c.TotalSupply, bal)
	}
	if len(list) == 0 {
		c.RiskLevel = score.Unknown
		c.Error = NoHoldersMessage
		return c
	}
	sort.Slice(list, func(i, j int) bool {
		if d := list[i].Balance.Cmp(list[j].Balance); d != 0 {
			return d > 0
		}
		return bytes.Compare(list[i].Address[:], list[j].Address[:]) < 0
	})
	top := list
	if len(top) > topN {
		top = top[:topN]
	}
	topSum := new(big.Int)
	for i := range top {
		top[i].Percentage = percent(top[i].Balance, c.TotalSupply)
		topSum.Add(topSum, top[i].Balance)
	}
	c.TotalHolders = len(list)
	c.Top10 = top
	c.Top10Percentage = percent(topSum, c.TotalSupply)
	c.Score = score.Concentration(c.Top10Percentage)
	c.RiskLevel = score.ConcentrationRisk(c.Top10Percentage)
	return c
}

func percent(part, total *big.Int) float64 {
	if total.Sign() == 0 {
		return 0
	}
	r := new(big.Rat).SetFrac(new(big.Int).Mul(part, big.NewInt(100)), total)
	f, _ := r.Float64()
	return f
}
