package activity

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/scan"
	"github.com/AIAleph/token_risk/internal/score"
)

const highFrequencyThreshold = 10

// Stats summarises how often each EOA appears in Transfer records. It is
// reported alongside the score and does not feed it.
type Stats struct {
	TotalEOA           int     `json:"total_eoa"`
	AvgTxPerEOA        float64 `json:"avg_tx_per_eoa"`
	HighFrequencyEOA   int     `json:"high_frequency_eoa"`
	SingleTxEOA        int     `json:"single_tx_eoa"`
	HighFreqPercentage float64 `json:"high_freq_percentage"`
	SingleTxPercentage float64 `json:"single_tx_percentage"`
}

func (s *Scorer) Stats(ctx context.Context, token common.Address, from, to uint64) Stats {
	return s.StatsFromScan(ctx, s.scanner.Scan(ctx, token, from, to))
}

// StatsFromScan counts one appearance per side of each record: a self-transfer
// counts twice for its address.
func (s *Scorer) StatsFromScan(ctx context.Context, res *scan.Result) Stats {
	classes := s.classifyAll(ctx, res.Addresses())
	counts := make(map[common.Address]int)
	for _, t := range res.Transfers {
		for _, a := range [2]common.Address{t.From, t.To} {
			if classes[a] {
				counts[a]++
			}
		}
	}
	var st Stats
	if len(counts) == 0 {
		return st
	}
	total := 0
	for _, n := range counts {
		total += n
		switch {
		case n > highFrequencyThreshold:
			st.HighFrequencyEOA++
		case n == 1:
			st.SingleTxEOA++
		}
	}
	st.TotalEOA = len(counts)
	eoa := float64(st.TotalEOA)
	st.AvgTxPerEOA = score.Round2(float64(total) / eoa)
	st.HighFreqPercentage = score.Round2(float64(st.HighFrequencyEOA) / eoa * 100)
	st.SingleTxPercentage = score.Round2(float64(st.SingleTxEOA) / eoa * 100)
	return st
}
