// Package units converts between decimal ETH amounts and wei.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const Decimals = 18

// maxEtherLen fits any uint256 wei amount written as plain ETH digits.
const maxEtherLen = 80

var weiPerEther = decimal.New(1, Decimals)

// ParseEther parses a decimal ETH string ("0.1", "12") into wei.
// More than 18 fractional digits, exponent notation or a negative value is an error.
func ParseEther(s string) (*big.Int, error) {
	if len(s) > maxEtherLen {
		return nil, fmt.Errorf("invalid amount: longer than %d characters", maxEtherLen)
	}
	if strings.ContainsAny(s, "eE") {
		return nil, fmt.Errorf("invalid amount %q: exponent notation", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", s)
	}
	wei := d.Mul(weiPerEther)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", s, Decimals)
	}
	return wei.BigInt(), nil
}

// ParseWei parses a base-10 integer wei string.
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return v, nil
}

// FormatEther renders wei as a decimal ETH string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}
