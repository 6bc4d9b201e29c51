package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-4217 code accepted by the gateway.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyUSD Currency = "USD"
)

// SupportedCurrencies lists the currencies every merchant holds a balance in.
var SupportedCurrencies = []Currency{CurrencyNGN, CurrencyUSD}

// ParseCurrency normalizes code and reports whether it is supported.
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	for _, s := range SupportedCurrencies {
		if c == s {
			return c, true
		}
	}
	return "", false
}

// Money is a decimal amount kept at 2 fractional digits.
// Rounding is half away from zero.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{Decimal: decimal.Zero}

// NewMoney rounds d to 2 places.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// MoneyFromInt returns a whole-unit amount.
func MoneyFromInt(v int64) Money {
	return NewMoney(decimal.NewFromInt(v))
}

// ParseMoney parses a decimal string and rounds it to 2 places.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return NewMoney(d), nil
}

// Add returns m + o rounded.
func (m Money) Add(o Money) Money {
	return NewMoney(m.Decimal.Add(o.Decimal))
}

// Sub returns m - o rounded.
func (m Money) Sub(o Money) Money {
	return NewMoney(m.Decimal.Sub(o.Decimal))
}

// Equal compares the rounded values.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Round(2).Equal(o.Decimal.Round(2))
}

// IsPositive reports m > 0.
func (m Money) IsPositive() bool {
	return m.Decimal.IsPositive()
}

// String returns the amount with exactly 2 decimals.
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}

// MarshalJSON writes the amount as a fixed 2-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a JSON string or number.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("parsing amount %s: %w", b, err)
	}
	*m = NewMoney(d)
	return nil
}
