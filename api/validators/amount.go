package validators

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// AmountCents converts a KES amount from a request body into minor units. At
// most two decimal places are accepted.
func AmountCents(field string, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"field": field})
	}
	cents := amount.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount has more than two decimal places").
			WithDetails(map[string]any{"field": field})
	}
	if !cents.LessThanOrEqual(decimal.NewFromInt(1 << 53)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount is too large").
			WithDetails(map[string]any{"field": field})
	}
	return cents.IntPart(), nil
}
