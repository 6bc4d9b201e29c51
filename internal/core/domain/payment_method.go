package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType selects how a payment method charges its fee.
type FeeType string

const (
	FeeTypePercentage FeeType = "percentage"
	FeeTypeFlat       FeeType = "flat"
)

// PaymentMethod is read-only configuration for a way of paying.
// Name doubles as the transaction type it accepts.
type PaymentMethod struct {
	ID                uuid.UUID       `json:"id"`
	Name              TransactionType `json:"name"`
	FeeType           FeeType         `json:"fee_type"`
	FeeRate           decimal.Decimal `json:"fee_rate"` // percent, 1.5 means 1.5%
	FeeAmount         Money           `json:"fee_amount"`
	MinimumAmount     Money           `json:"minimum_amount"`
	MaximumAmount     Money           `json:"maximum_amount"`
	AllowedCurrencies []Currency      `json:"allowed_currencies"`
	Available         bool            `json:"available"`
}

// Supports reports whether currency is in the allowed list.
func (p *PaymentMethod) Supports(currency Currency) bool {
	for _, c := range p.AllowedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// ComputeFee returns the fee charged by method on amount and the net the
// merchant keeps. The fee is rounded to 2 places once it is computed and
// the net is rounded after subtraction.
func ComputeFee(amount Money, method PaymentMethod) (fee, net Money) {
	switch method.FeeType {
	case FeeTypePercentage:
		fee = NewMoney(amount.Mul(method.FeeRate).Div(hundred))
	case FeeTypeFlat:
		fee = NewMoney(method.FeeAmount.Decimal)
	default:
		fee = Zero
	}
	return fee, amount.Sub(fee)
}
