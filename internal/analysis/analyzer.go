// Package analysis runs every signal for one token over one shared scan and
// assembles the report.
package analysis

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/AIAleph/token_risk/internal/activity"
	"github.com/AIAleph/token_risk/internal/erc20"
	"github.com/AIAleph/token_risk/internal/holders"
	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/scan"
)

type Scanner interface {
	Scan(ctx context.Context, token common.Address, from, to uint64) *scan.Result
}

// TokenReader is satisfied by erc20.Client.
type TokenReader interface {
	Info(ctx context.Context, token common.Address) erc20.TokenInfo
}

// Sink persists finished reports.
type Sink interface {
	Write(ctx context.Context, r *Report) error
}

type Request struct {
	Token       common.Address
	From, To    uint64
	WindowHours float64
}

// Coverage describes how much of the requested range was actually read.
type Coverage struct {
	Complete      bool       `json:"complete"`
	Batches       int        `json:"batches"`
	Shrinks       int        `json:"shrinks"`
	Undecodable   int        `json:"undecodable_logs"`
	SkippedBlocks uint64     `json:"skipped_blocks"`
	Gaps          []scan.Gap `json:"gaps"`
}

type Report struct {
	Token         erc20.TokenInfo        `json:"token"`
	Blocks        scan.Range             `json:"blocks"`
	Concentration *holders.Concentration `json:"holder_concentration"`
	Activity      *activity.Result       `json:"eoa_activity"`
	Stats         activity.Stats         `json:"eoa_stats"`
	Coverage      Coverage               `json:"coverage"`
	GeneratedAt   time.Time              `json:"generated_at"`
}

type Analyzer struct {
	scanner  Scanner
	tokens   TokenReader
	holders  *holders.Builder
	activity *activity.Scorer
	sink     Sink
	now      func() time.Time
}

type Option func(*Analyzer)

func WithSink(s Sink) Option { return func(a *Analyzer) { a.sink = s } }

func New(s Scanner, tokens TokenReader, h *holders.Builder, act *activity.Scorer, opts ...Option) *Analyzer {
	a := &Analyzer{scanner: s, tokens: tokens, holders: h, activity: act, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run scans the range once and feeds the result to both aggregations. The
// report is always returned; the error is the sink's, if any.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Report, error) {
	rep := &Report{Blocks: scan.Range{Start: req.From, End: req.To}}
	log := logging.Component("analysis").With("token", req.Token.Hex())
	start := a.now()

	var g errgroup.Group
	g.Go(func() error {
		rep.Token = a.tokens.Info(ctx, req.Token)
		return nil
	})
	g.Go(func() error {
		res := a.scanner.Scan(ctx, req.Token, req.From, req.To)
		rep.Coverage = coverageOf(res)

		var inner errgroup.Group
		inner.Go(func() error {
			if c, ok := a.holders.Cached(ctx, req.Token); ok {
				rep.Concentration = c
				return nil
			}
			rep.Concentration = a.holders.FromScan(ctx, res)
			return nil
		})
		inner.Go(func() error {
			// Sequential so the stats pass reuses the classifications just cached.
			rep.Activity = a.activity.FromScan(ctx, res, req.WindowHours)
			rep.Stats = a.activity.StatsFromScan(ctx, res)
			return nil
		})
		return inner.Wait()
	})
	_ = g.Wait()
	rep.GeneratedAt = a.now().UTC()

	log.Info("analysis_done",
		"from", req.From,
		"to", req.To,
		"transfers", rep.Activity.EventsCount,
		"complete", rep.Coverage.Complete,
		"concentration_score", rep.Concentration.Score,
		"activity_score", rep.Activity.Score,
		"elapsed_ms", a.now().Sub(start).Milliseconds(),
	)
	if a.sink == nil {
		return rep, nil
	}
	return rep, a.sink.Write(ctx, rep)
}

func coverageOf(res *scan.Result) Coverage {
	gaps := res.Gaps
	if gaps == nil {
		gaps = []scan.Gap{}
	}
	return Coverage{
		Complete:      res.Complete(),
		Batches:       res.Batches,
		Shrinks:       res.Shrinks,
		Undecodable:   res.Undecodable,
		SkippedBlocks: res.SkippedBlocks(),
		Gaps:          gaps,
	}
}
