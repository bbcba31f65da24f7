package analysis

import (
	"context"
	"fmt"

	"github.com/AIAleph/token_risk/pkg/ch"
)

const (
	reportsTable    = "token_risk_reports"
	topHoldersTable = "token_risk_top_holders"
	gapsTable       = "token_risk_scan_gaps"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + reportsTable + ` (
		token String,
		symbol String,
		name String,
		decimals UInt8,
		total_supply String,
		from_block UInt64,
		to_block UInt64,
		total_holders UInt32,
		top10_percentage Float64,
		concentration_score Float64,
		concentration_risk LowCardinality(String),
		unique_eoa_count UInt32,
		activity_score Float64,
		activity_risk LowCardinality(String),
		events_count UInt32,
		complete UInt8,
		skipped_blocks UInt64,
		generated_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree ORDER BY (token, generated_at)`,
	`CREATE TABLE IF NOT EXISTS ` + topHoldersTable + ` (
		token String,
		generated_at DateTime64(3, 'UTC'),
		rank UInt8,
		holder String,
		balance String,
		percentage Float64
	) ENGINE = MergeTree ORDER BY (token, generated_at, rank)`,
	`CREATE TABLE IF NOT EXISTS ` + gapsTable + ` (
		token String,
		generated_at DateTime64(3, 'UTC'),
		start_block UInt64,
		end_block UInt64,
		reason LowCardinality(String),
		error String
	) ENGINE = MergeTree ORDER BY (token, generated_at, start_block)`,
}

// inserter is the subset of *ch.Client the sink writes through.
type inserter interface {
	Exec(ctx context.Context, stmt string) error
	InsertJSONEachRow(ctx context.Context, table string, rows []any) error
}

// ClickHouseSink writes reports into three MergeTree tables.
type ClickHouseSink struct {
	c inserter
}

func NewClickHouseSink(c *ch.Client) *ClickHouseSink { return &ClickHouseSink{c: c} }

// EnsureSchema creates the report tables if they do not exist.
func (s *ClickHouseSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type reportRow struct {
	Token              string  `json:"token"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	Decimals           uint8   `json:"decimals"`
	TotalSupply        string  `json:"total_supply"`
	FromBlock          uint64  `json:"from_block"`
	ToBlock            uint64  `json:"to_block"`
	TotalHolders       int     `json:"total_holders"`
	Top10Percentage    float64 `json:"top10_percentage"`
	ConcentrationScore float64 `json:"concentration_score"`
	ConcentrationRisk  string  `json:"concentration_risk"`
	UniqueEOACount     int     `json:"unique_eoa_count"`
	ActivityScore      float64 `json:"activity_score"`
	ActivityRisk       string  `json:"activity_risk"`
	EventsCount        int     `json:"events_count"`
	Complete           uint8   `json:"complete"`
	SkippedBlocks      uint64  `json:"skipped_blocks"`
	GeneratedAt        string  `json:"generated_at"`
}

type holderRow struct {
	Token       string  `json:"token"`
	GeneratedAt string  `json:"generated_at"`
	Rank        int     `json:"rank"`
	Holder      string  `json:"holder"`
	Balance     string  `json:"balance"`
	Percentage  float64 `json:"percentage"`
}

type gapRow struct {
	Token       string `json:"token"`
	GeneratedAt string `json:"generated_at"`
	StartBlock  uint64 `json:"start_block"`
	EndBlock    uint64 `json:"end_block"`
	Reason      string `json:"reason"`
	Error       string `json:"error"`
}

const chTimeLayout = "2006-01-02 15:04:05.000"

func (s *ClickHouseSink) Write(ctx context.Context, r *Report) error {
	ts := r.GeneratedAt.UTC().Format(chTimeLayout)
	token := r.Token.Address
	row := reportRow{
		Token:              token,
		Symbol:             r.Token.Symbol,
		Name:               r.Token.Name,
		Decimals:           r.Token.Decimals,
		FromBlock:          r.Blocks.Start,
		ToBlock:            r.Blocks.End,
		TotalHolders:       r.Concentration.TotalHolders,
		Top10Percentage:    r.Concentration.Top10Percentage,
		ConcentrationScore: r.Concentration.Score,
		ConcentrationRisk:  string(r.Concentration.RiskLevel),
		UniqueEOACount:     r.Activity.UniqueEOACount,
		ActivityScore:      r.Activity.Score,
		ActivityRisk:       string(r.Activity.RiskLevel),
		EventsCount:        r.Activity.EventsCount,
		SkippedBlocks:      r.Coverage.SkippedBlocks,
		GeneratedAt:        ts,
	}
	if r.Token.TotalSupply != nil {
		row.TotalSupply = r.Token.TotalSupply.String()
	}
	if r.Coverage.Complete {
		row.Complete = 1
	}
	if err := s.c.InsertJSONEachRow(ctx, reportsTable, []any{row}); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	holderRows := make([]any, 0, len(r.Concentration.Top10))
	for i, h := range r.Concentration.Top10 {
		holderRows = append(holderRows, holderRow{
			Token:       token,
			GeneratedAt: ts,
			Rank:        i + 1,
			Holder:      h.Address.Hex(),
			Balance:     h.Balance.String(),
			Percentage:  h.Percentage,
		})
	}
	if err := s.c.InsertJSONEachRow(ctx, topHoldersTable, holderRows); err != nil {
		return fmt.Errorf("insert top holders: %w", err)
	}

	gapRows := make([]any, 0, len(r.Coverage.Gaps))
	for _, g := range r.Coverage.Gaps {
		gapRows = append(gapRows, gapRow{
			Token:       token,
			GeneratedAt: ts,
			StartBlock:  g.Start,
			EndBlock:    g.End,
			Reason:      string(g.Reason),
			Error:       g.Err,
		})
	}
	if err := s.c.InsertJSONEachRow(ctx, gapsTable, gapRows); err != nil {
		return fmt.Errorf("insert gaps: %w", err)
	}
	return nil
}
