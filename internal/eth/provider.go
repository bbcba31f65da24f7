package eth

import (
	"context"
)

// Provider defines the minimal RPC surface the scanners and token readers
// need. Concrete adapters (Alchemy/Infura/QuickNode/self-hosted) satisfy it.
// Note: avoid floats for on-chain values; use hex strings or big.Int at the edges.
type Provider interface {
	// BlockNumber returns the current head block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// GetLogs fetches logs for the given address/topics in the block range
	// [from, to]. Capacity failures are reported as *RPCError with
	// Kind == KindRangeTooLarge; the caller owns range splitting.
	GetLogs(ctx context.Context, address string, from, to uint64, topics [][]string) ([]Log, error)

	// CodeAt returns the hex-encoded runtime code at address for the latest block.
	CodeAt(ctx context.Context, address string) (string, error)

	// Call executes a read-only eth_call against the latest block.
	Call(ctx context.Context, to string, data []byte) ([]byte, error)
}

// Log is a raw Ethereum log as returned by eth_getLogs.
type Log struct {
	TxHash   string
	Index    uint32
	Address  string
	Topics   []string
	DataHex  string
	BlockNum uint64
	Removed  bool
	// NoIndex is set when the endpoint omitted logIndex or sent garbage;
	// Index is then 0 and cannot identify the log within its transaction.
	NoIndex bool
}
