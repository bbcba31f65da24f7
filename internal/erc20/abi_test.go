package erc20

import (
	"encoding/hex"
	"testing"
)

func TestTransferTopicMatchesKnownHash(t *testing.T) {
	const want = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	if got := TransferTopic.Hex(); got != want {
		t.Fatalf("TransferTopic=%s want %s", got, want)
	}
	if transferEvent.ID != TransferTopic {
		t.Fatalf("ABI event id %s differs from keccak topic %s", transferEvent.ID.Hex(), TransferTopic.Hex())
	}
}

func TestSelectorAndCanonicalSignature(t *testing.T) {
	sel := Selector("balanceOf(address)")
	if got := hex.EncodeToString(sel[:]); got != "70a08231" {
		t.Fatalf("balanceOf selector=%s", got)
	}
	if EventTopic("Transfer(address, address, uint256)") != TransferTopic {
		t.Fatal("whitespace should not change the topic")
	}
}
