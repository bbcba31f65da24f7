package abi

import _ "embed"

// ERC-20 ABI subset used for metadata calls, balance reads and Transfer decoding.
//
//go:embed erc20.json
var ERC20 []byte
