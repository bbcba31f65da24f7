package erc20

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/metrics"
)

// Defaults substituted when a metadata read fails. Callers rely on these
// exact values.
const (
	DefaultName     = "Unknown"
	DefaultSymbol   = "UNKNOWN"
	DefaultDecimals = uint8(18)
)

var errEmptyReturn = errors.New("empty return data")

// Caller is the read-only eth_call surface (eth.Provider satisfies it).
type Caller interface {
	Call(ctx context.Context, to string, data []byte) ([]byte, error)
}

// Client reads ERC-20 state. Every read substitutes a documented default on
// failure and never returns an error.
type Client struct {
	caller Caller
}

func NewClient(c Caller) *Client { return &Client{caller: c} }

// TokenInfo is the metadata snapshot of a token contract.
type TokenInfo struct {
	Address          string   `json:"address"`
	Name             string   `json:"name"`
	Symbol           string   `json:"symbol"`
	Decimals         uint8    `json:"decimals"`
	TotalSupply      *big.Int `json:"total_supply"`
	TotalSupplyHuman float64  `json:"total_supply_human"`
}

func (c *Client) call(ctx context.Context, token common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.caller.Call(ctx, token.Hex(), data)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return errEmptyReturn
	}
	if err := tokenABI.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

func (c *Client) warn(method string, token common.Address, err error) {
	logging.Logger().Debug("token_read_failed",
		"component", "erc20.client",
		"method", method,
		"token", token.Hex(),
		"error", err.Error(),
	)
}

// Name returns name() or DefaultName.
func (c *Client) Name(ctx context.Context, token common.Address) string {
	var name string
	if err := c.call(ctx, token, "name", &name); err != nil {
		c.warn("name", token, err)
		return DefaultName
	}
	return name
}

// Symbol returns symbol() or DefaultSymbol.
func (c *Client) Symbol(ctx context.Context, token common.Address) string {
	var symbol string
	if err := c.call(ctx, token, "symbol", &symbol); err != nil {
		c.warn("symbol", token, err)
		return DefaultSymbol
	}
	return symbol
}

// Decimals returns decimals() or DefaultDecimals.
func (c *Client) Decimals(ctx context.Context, token common.Address) uint8 {
	var d uint8
	if err := c.call(ctx, token, "decimals", &d); err != nil {
		c.warn("decimals", token, err)
		return DefaultDecimals
	}
	return d
}

// TotalSupply returns totalSupply() in raw units, or 0.
func (c *Client) TotalSupply(ctx context.Context, token common.Address) *big.Int {
	var supply *big.Int
	if err := c.call(ctx, token, "totalSupply", &supply); err != nil || supply == nil {
		if err != nil {
			c.warn("totalSupply", token, err)
		}
		return new(big.Int)
	}
	return supply
}

// BalanceOf returns balanceOf(holder) in raw units, or 0 on any failure.
func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address) *big.Int {
	var bal *big.Int
	if err := c.call(ctx, token, "balanceOf", &bal, holder); err != nil || bal == nil {
		metrics.BalanceReadFailures.Inc()
		if err != nil {
			logging.Logger().Warn("balance_read_failed",
				"component", "erc20.client",
				"token", token.Hex(),
				"holder", holder.Hex(),
				"error", err.Error(),
			)
		}
		return new(big.Int)
	}
	return bal
}

// Info reads all metadata fields.
func (c *Client) Info(ctx context.Context, token common.Address) TokenInfo {
	supply := c.TotalSupply(ctx, token)
	decimals := c.Decimals(ctx, token)
	return TokenInfo{
		Address:          token.Hex(),
		Name:             c.Name(ctx, token),
		Symbol:           c.Symbol(ctx, token),
		Decimals:         decimals,
		TotalSupply:      supply,
		TotalSupplyHuman: Human(supply, decimals),
	}
}

// Human scales a raw amount down by 10^decimals.
func Human(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), new(big.Float).SetInt(scale)).Float64()
	return f
}
