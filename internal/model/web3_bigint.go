package model

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has more fractional digits than the token supports")
)

// Web3BigInt is a token amount in base units together with the token decimals.
type Web3BigInt struct {
	Value   string `json:"value"`
	Decimal int    `json:"decimal"`
}

// ParseUnits converts a human decimal string ("12.5") into base units.
// The conversion is exact: digits beyond the token decimals are rejected, never rounded.
func ParseUnits(human string, decimals int) (*Web3BigInt, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if d.IsNegative() {
		return nil, ErrInvalidAmount
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrTooManyDecimals
	}

	return &Web3BigInt{
		Value:   scaled.BigInt().String(),
		Decimal: decimals,
	}, nil
}

func NewWeb3BigInt(value *big.Int, decimals int) *Web3BigInt {
	return &Web3BigInt{
		Value:   value.String(),
		Decimal: decimals,
	}
}

func (w *Web3BigInt) BigInt() *big.Int {
	num, ok := new(big.Int).SetString(w.Value, 10)
	if !ok {
		return new(big.Int)
	}
	return num
}

// Human formats the amount with the token decimals applied, without trailing zeros.
func (w *Web3BigInt) Human() string {
	return decimal.NewFromBigInt(w.BigInt(), -int32(w.Decimal)).String()
}

func (w *Web3BigInt) Cmp(number *Web3BigInt) int {
	return w.BigInt().Cmp(number.BigInt())
}

func (w *Web3BigInt) Sub(number *Web3BigInt) *Web3BigInt {
	result := new(big.Int).Sub(w.BigInt(), number.BigInt())

	return &Web3BigInt{
		Value:   result.String(),
		Decimal: w.Decimal,
	}
}
