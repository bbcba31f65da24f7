package erc20

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	fixtureabi "github.com/AIAleph/token_risk/fixtures/abi"
)

// TransferSignature is the canonical ERC-20 Transfer event signature.
const TransferSignature = "Transfer(address,address,uint256)"

var (
	tokenABI abi.ABI

	// TransferTopic is keccak256(TransferSignature), topic0 of every Transfer log.
	TransferTopic common.Hash

	transferEvent   abi.Event
	transferIndexed abi.Arguments
)

func init() {
	parsed, err := abi.JSON(bytes.NewReader(fixtureabi.ERC20))
	if err != nil {
		panic(fmt.Sprintf("erc20: unable to parse ABI: %v", err))
	}
	tokenABI = parsed
	transferEvent = parsed.Events["Transfer"]
	for _, arg := range transferEvent.Inputs {
		if arg.Indexed {
			transferIndexed = append(transferIndexed, arg)
		}
	}
	TransferTopic = EventTopic(TransferSignature)
}

// EventTopic hashes a canonical event signature such as "Approval(address,address,uint256)".
func EventTopic(signature string) common.Hash {
	return common.BytesToHash(keccak([]byte(canonicalSignature(signature))))
}

// Selector returns the 4-byte function selector for a canonical signature.
func Selector(signature string) [4]byte {
	var out [4]byte
	copy(out[:], keccak([]byte(canonicalSignature(signature))))
	return out
}

func canonicalSignature(sig string) string {
	return strings.ReplaceAll(strings.TrimSpace(sig), " ", "")
}

func keccak(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}
