// Package scan walks a block interval in adaptive batches and collects the
// ERC-20 Transfer logs of one token.
package scan

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/erc20"
	"github.com/AIAleph/token_risk/internal/eth"
	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/metrics"
)

const (
	DefaultBatchSize = 1000
	DefaultMinBatch  = 100
)

// LogQuerier is the eth_getLogs surface of eth.Provider.
type LogQuerier interface {
	GetLogs(ctx context.Context, address string, from, to uint64, topics [][]string) ([]eth.Log, error)
}

// Scanner queries Transfer logs batch by batch. A Scanner holds no per-scan
// state and may run concurrent scans.
type Scanner struct {
	q         LogQuerier
	batchSize uint64
	minBatch  uint64
}

type Option func(*Scanner)

// WithBatchSize sets the block span added to the cursor for each batch.
func WithBatchSize(n uint64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMinBatch sets the shrink floor below which a rejected range is abandoned.
func WithMinBatch(n uint64) Option {
	return func(s *Scanner) { s.minBatch = n }
}

func New(q LogQuerier, opts ...Option) *Scanner {
	s := &Scanner{q: q, batchSize: DefaultBatchSize, minBatch: DefaultMinBatch}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scanner) BatchSize() uint64 { return s.batchSize }
func (s *Scanner) MinBatch() uint64  { return s.minBatch }

// Scan collects Transfer logs emitted by token in [from, to]. It never fails:
// ranges that could not be fetched are listed in Result.Gaps.
func (s *Scanner) Scan(ctx context.Context, token common.Address, from, to uint64) *Result {
	res := &Result{Token: token, From: from, To: to}
	if from > to {
		return res
	}
	log := logging.Component("scan").With("token", token.Hex())
	topics := [][]string{{erc20.TransferTopic.Hex()}}
	seen := make(map[logKey]struct{})

	cursor := from
	for cursor <= to {
		if err := ctx.Err(); err != nil {
			s.abandon(log, res, Range{cursor, to}, GapCancelled, err)
			return res
		}
		end := to
		if s.batchSize <= to-cursor {
			end = cursor + s.batchSize
		}
		for {
			logs, err := s.q.GetLogs(ctx, token.Hex(), cursor, end, topics)
			res.Batches++
			if err == nil {
				metrics.ScanBatches.WithLabelValues("ok").Inc()
				s.collect(log, res, logs, seen)
				break
			}
			if ctx.Err() != nil {
				metrics.ScanBatches.WithLabelValues("error").Inc()
				s.abandon(log, res, Range{cursor, to}, GapCancelled, err)
				return res
			}
			if eth.KindOf(err) != eth.KindRangeTooLarge {
				metrics.ScanBatches.WithLabelValues("error").Inc()
				log.Warn("scan_batch_failed", "from", cursor, "to", end, "error", err.Error())
				s.abandon(log, res, Range{cursor, end}, GapRPCError, err)
				break
			}
			metrics.ScanBatches.WithLabelValues("range_too_large").Inc()
			width := (end - cursor) / 2
			if width < s.minBatch {
				s.abandon(log, res, Range{cursor, end}, GapCapacity, err)
				break
			}
			res.Shrinks++
			metrics.ScanShrinks.Inc()
			log.Debug("scan_batch_shrunk", "from", cursor, "to", end, "width", width)
			end = cursor + width
		}
		if end == math.MaxUint64 {
			break
		}
		cursor = end + 1
	}
	return res
}

// logKey identifies a log. Without a usable logIndex the topics and data
// stand in for it.
type logKey struct {
	tx      string
	index   uint32
	content string
}

func (s *Scanner) collect(log *slog.Logger, res *Result, logs []eth.Log, seen map[logKey]struct{}) {
	for _, l := range logs {
		if l.Removed {
			continue
		}
		k := logKey{tx: l.TxHash, index: l.Index}
		if l.NoIndex {
			k.content = strings.Join(l.Topics, ",") + "|" + l.DataHex
			log.Debug("log_index_missing", "tx", l.TxHash, "block", l.BlockNum)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		ev, err := erc20.DecodeTransfer(l)
		if err != nil {
			res.Undecodable++
			metrics.UndecodableLogs.Inc()
			log.Debug("transfer_decode_failed", "tx", l.TxHash, "log_index", l.Index, "error", err.Error())
			continue
		}
		seen[k] = struct{}{}
		res.Transfers = append(res.Transfers, Transfer{
			BlockNumber: l.BlockNum,
			TxHash:      common.HexToHash(l.TxHash),
			LogIndex:    l.Index,
			From:        ev.From,
			To:          ev.To,
			Value:       ev.Value,
		})
	}
}

func (s *Scanner) abandon(log *slog.Logger, res *Result, r Range, reason GapReason, err error) {
	g := Gap{Range: r, Reason: reason}
	if err != nil {
		g.Err = err.Error()
	}
	res.Gaps = append(res.Gaps, g)
	metrics.ScanSkippedBlocks.WithLabelValues(string(reason)).Add(float64(r.Blocks()))
	log.Warn("scan_range_abandoned", "from", r.Start, "to", r.End, "reason", string(reason))
}
