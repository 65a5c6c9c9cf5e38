// Package ledger defines the fungible-asset ledger the issuance controller
// settles against, plus an in-process implementation. The controller only
// assumes the interface: atomic per-call balance bookkeeping with supply
// conservation across transfers.
package ledger

import (
	"errors"
	"math/big"
)

var (
	ErrInvalidAccount      = errors.New("ledger: invalid account address")
	ErrInvalidAmount       = errors.New("ledger: amount must be a non-negative integer")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)

// Ledger is a conventional token ledger. Every method is atomic; Mint and
// Burn adjust total supply, Transfer conserves it.
type Ledger interface {
	TotalSupply() *big.Int
	BalanceOf(addr string) *big.Int
	Mint(addr string, amount *big.Int) error
	Burn(addr string, amount *big.Int) error
	Transfer(from, to string, amount *big.Int) error
}
