package scan

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transfer is one decoded ERC-20 Transfer log.
type Transfer struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint32
	From        common.Address
	To          common.Address
	Value       *big.Int
}

// Range is an inclusive block interval.
type Range struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Blocks returns the number of blocks in r.
func (r Range) Blocks() uint64 { return r.End - r.Start + 1 }

type GapReason string

const (
	// GapCapacity: the provider rejected the range even after shrinking to the floor.
	GapCapacity GapReason = "capacity"
	// GapRPCError: any other query failure.
	GapRPCError GapReason = "rpc_error"
	// GapCancelled: the context ended before the range was queried.
	GapCancelled GapReason = "cancelled"
)

// Gap is a sub-range the scanner gave up on. No data from it is in the result.
type Gap struct {
	Range
	Reason GapReason `json:"reason"`
	Err    string    `json:"error,omitempty"`
}

// Result is the best-effort output of one scan.
type Result struct {
	Token     common.Address
	From      uint64
	To        uint64
	Transfers []Transfer
	Gaps      []Gap

	Batches     int // log queries issued, including shrunk retries
	Shrinks     int
	Undecodable int
}

// Complete reports whether every block of [From, To] was queried successfully.
func (r *Result) Complete() bool { return len(r.Gaps) == 0 }

// SkippedBlocks sums the width of all gaps.
func (r *Result) SkippedBlocks() uint64 {
	var n uint64
	for _, g := range r.Gaps {
		n += g.Blocks()
	}
	return n
}

// Addresses returns every distinct from/to address in first-seen order,
// the zero address included.
func (r *Result) Addresses() []common.Address {
	return r.distinct(true)
}

// Participants is Addresses without the zero address.
func (r *Result) Participants() []common.Address {
	return r.distinct(false)
}

func (r *Result) distinct(withZero bool) []common.Address {
	seen := make(map[common.Address]struct{})
	var out []common.Address
	add := func(a common.Address) {
		if !withZero && a == (common.Address{}) {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	for _, t := range r.Transfers {
		add(t.From)
		add(t.To)
	}
	return out
}
