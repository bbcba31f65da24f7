package erc20

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/eth"
)

func padAddr(a string) string {
	return common.BytesToHash(common.HexToAddress(a).Bytes()).Hex()
}

func word(v int64) string {
	return "0x" + common.BigToHash(big.NewInt(v)).Hex()[2:]
}

func transferLog(from, to string, value int64) eth.Log {
	return eth.Log{
		TxHash:   "0xabc",
		Index:    1,
		Topics:   []string{TransferTopic.Hex(), padAddr(from), padAddr(to)},
		DataHex:  word(value),
		BlockNum: 16,
	}
}

func TestDecodeTransfer(t *testing.T) {
	from := "0x1111111111111111111111111111111111111111"
	to := "0x2222222222222222222222222222222222222222"
	ev, err := DecodeTransfer(transferLog(from, to, 100))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.From != common.HexToAddress(from) || ev.To != common.HexToAddress(to) || ev.Value.Int64() != 100 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodeTransfer_FullWidthValue(t *testing.T) {
	l := transferLog("0x01", "0x02", 0)
	l.DataHex = "0x" + strings.Repeat("f", 64)
	ev, err := DecodeTransfer(l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if ev.Value.Cmp(max) != 0 {
		t.Fatalf("value=%s want 2^256-1", ev.Value)
	}
}

func TestDecodeTransfer_Malformed(t *testing.T) {
	good := transferLog("0x01", "0x02", 5)
	cases := map[string]func(l *eth.Log){
		"erc721 four topics": func(l *eth.Log) { l.Topics = append(l.Topics, word(7)) },
		"missing topics":     func(l *eth.Log) { l.Topics = l.Topics[:2] },
		"other event":        func(l *eth.Log) { l.Topics[0] = EventTopic("Approval(address,address,uint256)").Hex() },
		"short topic":        func(l *eth.Log) { l.Topics[1] = "0x01" },
		"bad hex topic":      func(l *eth.Log) { l.Topics[2] = "0xzz" },
		"dirty padding":      func(l *eth.Log) { l.Topics[1] = "0x" + strings.Repeat("f", 64) },
		"empty data":         func(l *eth.Log) { l.DataHex = "0x" },
		"short data":         func(l *eth.Log) { l.DataHex = "0x01" },
		"odd data":           func(l *eth.Log) { l.DataHex = "0x123" },
	}
	for name, mutate := range cases {
		l := good
		l.Topics = append([]string(nil), good.Topics...)
		mutate(&l)
		if _, err := DecodeTransfer(l); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestDecodeTransfer_NotTransferSentinel(t *testing.T) {
	l := transferLog("0x01", "0x02", 5)
	l.Topics = l.Topics[:1]
	if _, err := DecodeTransfer(l); !errors.Is(err, ErrNotTransfer) {
		t.Fatalf("expected ErrNotTransfer, got %v", err)
	}
}
