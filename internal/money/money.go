// Package money provides the exact-decimal amount type used across the
// seller-funds core. All arithmetic is decimal; floats never enter here.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	ErrNegativeAmount   = errors.New("negative_amount")
)

// Scale is the number of fractional digits kept on stored amounts.
const Scale = 2

// Money is an exact decimal amount tagged with an ISO 4217 currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New builds a Money value, normalizing the currency code.
func New(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount.Round(Scale), Currency: currency}, nil
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(strings.TrimSpace(currency))}
}

// MustParse parses a decimal string into Money. Panics on bad input;
// intended for fixtures and tests.
func MustParse(amount, currency string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(fmt.Sprintf("money: parse %q: %v", amount, err))
	}
	m, err := New(d, currency)
	if err != nil {
		panic(fmt.Sprintf("money: %q: %v", currency, err))
	}
	return m
}

func (m Money) sameCurrency(o Money) error {
	if m.Currency != o.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// Add returns m + o. The currencies must match.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m - o. The currencies must match.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// ApplyRate returns the amount produced by applying a percentage rate
// (0-100) to m, rounded to the stored scale.
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	return Money{
		Amount:   m.Amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(Scale),
		Currency: m.Currency,
	}
}

// Cmp compares amounts: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	return m.Amount.Cmp(o.Amount), nil
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

func (m Money) String() string {
	return m.Amount.StringFixed(Scale) + " " + m.Currency
}

// SumEquals reports whether the given parts sum exactly to total.
func SumEquals(total decimal.Decimal, parts []decimal.Decimal) bool {
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	return sum.Equal(total)
}
