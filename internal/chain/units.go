package chain

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const EtherDecimals = 18

// ParseUnits converts a human amount ("100", "0.0002") into base units.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrapf(err, "bad amount %q", amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, errors.Errorf("too many fractional digits for %d decimals", decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders base units with the given decimals, trailing zeros trimmed.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

func ParseEther(amount string) (*big.Int, error) { return ParseUnits(amount, EtherDecimals) }

func FormatEther(v *big.Int) string { return FormatUnits(v, EtherDecimals) }

// MustEther is for constants known at compile time.
func MustEther(amount string) *big.Int {
	v, err := ParseEther(amount)
	if err != nil {
		panic(err)
	}
	return v
}
