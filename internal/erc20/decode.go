package erc20

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/AIAleph/token_risk/internal/eth"
)

var ErrNotTransfer = errors.New("log is not an ERC-20 Transfer")

// TransferEvent is the decoded payload of a Transfer log.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeTransfer decodes l against the ERC-20 Transfer schema: topic0 is the
// event id, topics 1 and 2 are left-padded addresses, data is one uint256.
// Logs with a different topic count (ERC-721 puts the token id in topic 3)
// are rejected.
func DecodeTransfer(l eth.Log) (TransferEvent, error) {
	if len(l.Topics) != 3 {
		return TransferEvent{}, fmt.Errorf("%w: %d topics", ErrNotTransfer, len(l.Topics))
	}
	topics := make([]common.Hash, len(l.Topics))
	for i, t := range l.Topics {
		h, err := parseWord(t)
		if err != nil {
			return TransferEvent{}, fmt.Errorf("topic %d: %w", i, err)
		}
		topics[i] = h
	}
	if topics[0] != TransferTopic {
		return TransferEvent{}, fmt.Errorf("%w: topic0 %s", ErrNotTransfer, topics[0].Hex())
	}
	for i := 1; i < 3; i++ {
		if !isPaddedAddress(topics[i]) {
			return TransferEvent{}, fmt.Errorf("topic %d: non-zero address padding", i)
		}
	}
	fields := make(map[string]interface{}, 2)
	if err := abi.ParseTopicsIntoMap(fields, transferIndexed, topics[1:]); err != nil {
		return TransferEvent{}, fmt.Errorf("parse topics: %w", err)
	}
	data, err := hexutil.Decode(l.DataHex)
	if err != nil {
		return TransferEvent{}, fmt.Errorf("data: %w", err)
	}
	values, err := transferEvent.Inputs.Unpack(data)
	if err != nil {
		return TransferEvent{}, fmt.Errorf("unpack value: %w", err)
	}
	from, okFrom := fields["from"].(common.Address)
	to, okTo := fields["to"].(common.Address)
	value, okValue := values[0].(*big.Int)
	if !okFrom || !okTo || !okValue {
		return TransferEvent{}, fmt.Errorf("unexpected field types")
	}
	return TransferEvent{From: from, To: to, Value: value}, nil
}

func parseWord(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("word has %d bytes", len(b))
	}
	return common.BytesToHash(b), nil
}

func isPaddedAddress(h common.Hash) bool {
	for _, b := range h[:common.HashLength-common.AddressLength] {
		if b != 0 {
			return false
		}
	}
	return true
}
