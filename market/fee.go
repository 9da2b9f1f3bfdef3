package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// Precision is the number of decimal places every amount is kept at.
	Precision = 8

	BasisPointsDenominator = 10000
)

// FeePolicy is fixed when the marketplace is built and never changes.
type FeePolicy struct {
	Recipient   string
	BasisPoints int64
}

func NewFeePolicy(recipient string, bps int64) (FeePolicy, error) {
	if bps < 0 || bps > BasisPointsDenominator {
		return FeePolicy{}, fmt.Errorf("%w: fee basis points %d", ErrInvalidConfig, bps)
	}
	if !validAccount(recipient) {
		return FeePolicy{}, fmt.Errorf("%w: fee recipient %q", ErrInvalidConfig, recipient)
	}
	return FeePolicy{Recipient: recipient, BasisPoints: bps}, nil
}

// Fee truncates toward zero at Precision, so it is never negative.
func (p FeePolicy) Fee(price decimal.Decimal) decimal.Decimal {
	fee := price.Mul(decimal.NewFromInt(p.BasisPoints))
	fee = fee.Div(decimal.NewFromInt(BasisPointsDenominator))
	return fee.Truncate(Precision)
}

func (p FeePolicy) Total(price decimal.Decimal) decimal.Decimal {
	return price.Add(p.Fee(price))
}

func validPrice(price decimal.Decimal) bool {
	if price.Sign() <= 0 {
		return false
	}
	return price.Equal(price.Truncate(Precision))
}
