// Package starknet holds the thin binding to the payment chamber and token
// contracts: amount encoding, call construction for the approve+deposit
// multicall, and the wallet collaborator interface.
package starknet

import (
	"math/big"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Uint256 is a 256-bit unsigned integer split into two 128-bit words, the
// representation token contracts expect for amounts. Both words are decimal
// strings ready for calldata.
type Uint256 struct {
	Low  string
	High string
}

var maxWord = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// AmountToUint256 converts a decimal currency amount into the token's
// fixed-point integer representation (decimals fractional digits) and splits
// it into the low/high word pair.
//
// Amounts that are negative or carry more precision than the token supports
// are rejected rather than silently rounded.
func AmountToUint256(amount decimal.Decimal, decimals int32) (Uint256, error) {
	if amount.IsNegative() {
		return Uint256{}, errors.Errorf("amount %s is negative", amount)
	}

	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return Uint256{}, errors.Errorf("amount %s exceeds token precision of %d decimals", amount, decimals)
	}

	n := scaled.BigInt()
	low := new(big.Int).And(n, maxWord)
	high := new(big.Int).Rsh(n, 128)

	return Uint256{
		Low:  low.String(),
		High: high.String(),
	}, nil
}
