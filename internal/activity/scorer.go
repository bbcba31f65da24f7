// Package activity measures how many distinct externally owned accounts move
// a token within a time window.
package activity

import (
	"bytes"
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/scan"
	"github.com/AIAleph/token_risk/internal/score"
)

// NoTransfersMessage is reported when the scan produced no Transfer records.
const NoTransfersMessage = "No transfer events found"

type Scanner interface {
	Scan(ctx context.Context, token common.Address, from, to uint64) *scan.Result
}

// Classifier is satisfied by classify.Classifier.
type Classifier interface {
	IsEOA(ctx context.Context, addr common.Address) (bool, error)
}

// Result is the unique EOA activity report.
type Result struct {
	UniqueEOACount    int              `json:"unique_eoa_count"`
	UniqueEOAs        []common.Address `json:"unique_eoa_list"`
	TotalAddresses    int              `json:"total_addresses"`
	ContractAddresses int              `json:"contract_addresses"`
	Unclassified      int              `json:"unclassified_addresses"`
	EOAPercentage     float64          `json:"eoa_percentage"`
	NormalizedCount   float64          `json:"normalized_eoa_per_hour"`
	Score             float64          `json:"score"`
	RiskLevel         score.Risk       `json:"risk_level"`
	TimeWindowHours   float64          `json:"time_window_hours"`
	BlocksAnalyzed    scan.Range       `json:"blocks_analyzed"`
	EventsCount       int              `json:"events_count"`
	Message           string           `json:"message,omitempty"`
	Complete          bool             `json:"complete"`
	Gaps              []scan.Gap       `json:"gaps,omitempty"`
}

type Scorer struct {
	scanner    Scanner
	classifier Classifier
}

func New(s Scanner, c Classifier) *Scorer {
	return &Scorer{scanner: s, classifier: c}
}

// Analyze scans [from, to] and scores unique EOA participation normalised by
// windowHours. Non-positive windows count as one hour.
func (s *Scorer) Analyze(ctx context.Context, token common.Address, from, to uint64, windowHours float64) *Result {
	return s.FromScan(ctx, s.scanner.Scan(ctx, token, from, to), windowHours)
}

func (s *Scorer) FromScan(ctx context.Context, res *scan.Result, windowHours float64) *Result {
	if windowHours <= 0 {
		windowHours = 1
	}
	out := &Result{
		UniqueEOAs:      []common.Address{},
		TimeWindowHours: windowHours,
		BlocksAnalyzed:  scan.Range{Start: res.From, End: res.To},
		EventsCount:     len(res.Transfers),
		Complete:        res.Complete(),
		Gaps:            res.Gaps,
	}
	if len(res.Transfers) == 0 {
		out.RiskLevel = score.High
		out.Message = NoTransfersMessage
		return out
	}

	participants := res.Addresses()
	classes := s.classifyAll(ctx, participants)
	for addr, isEOA := range classes {
		if isEOA {
			out.UniqueEOAs = append(out.UniqueEOAs, addr)
		} else {
			out.ContractAddresses++
		}
	}
	sortAddresses(out.UniqueEOAs)
	out.TotalAddresses = len(participants)
	out.Unclassified = out.TotalAddresses - len(classes)
	out.UniqueEOACount = len(out.UniqueEOAs)
	if out.TotalAddresses > 0 {
		out.EOAPercentage = score.Round2(float64(out.UniqueEOACount) / float64(out.TotalAddresses) * 100)
	}
	out.NormalizedCount = float64(out.UniqueEOACount) / windowHours
	out.Score, out.RiskLevel = score.Activity(out.NormalizedCount)

	logging.Logger().Info("activity_scored",
		"component", "activity",
		"token", res.Token.Hex(),
		"events", out.EventsCount,
		"unique_eoa", out.UniqueEOACount,
		"contracts", out.ContractAddresses,
		"unclassified", out.Unclassified,
		"score", out.Score,
	)
	return out
}

// classifyAll maps each address to its class. Addresses whose classification
// failed are absent from the map.
func (s *Scorer) classifyAll(ctx context.Context, addrs []common.Address) map[common.Address]bool {
	out := make(map[common.Address]bool, len(addrs))
	for _, a := range addrs {
		isEOA, err := s.classifier.IsEOA(ctx, a)
		if err != nil {
			logging.Logger().Warn("classify_failed",
				"component", "activity",
				"address", a.Hex(),
				"error", err.Error(),
			)
			continue
		}
		out[a] = isEOA
	}
	return out
}

func sortAddresses(a []common.Address) {
	sort.Slice(a, func(i, j int) bool { return bytes.Compare(a[i][:], a[j][:]) < 0 })
}
