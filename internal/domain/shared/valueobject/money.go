package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/recordshop/backend/internal/domain/shared"
)

// DefaultCurrency is the currency assumed when none is provided.
const DefaultCurrency = "USD"

// minorUnitDigits maps a currency code to the number of digits after the
// decimal point in its minor unit. Currencies not listed default to 2.
var minorUnitDigits = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CAD": 2,
	"AUD": 2,
	"JPY": 0,
	"KRW": 0,
}

// Money is an immutable amount of a single currency. The zero value is
// 0 in the default currency. All arithmetic returns a new Money and
// rejects cross-currency operands.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney creates a Money from a decimal amount and currency code.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		cur = DefaultCurrency
	}
	if len(cur) != 3 {
		return Money{}, shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("invalid currency code: %s", currency))
	}
	return Money{amount: amount, currency: cur}, nil
}

// MustMoney is like NewMoney but panics on an invalid currency.
// Intended for constants and tests.
func MustMoney(amount decimal.Decimal, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromString parses a decimal string such as "19.99".
func NewMoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("invalid amount: %s", amount))
	}
	return NewMoney(d, currency)
}

// NewUSD creates a USD Money from a decimal amount.
func NewUSD(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: DefaultCurrency}
}

// NewUSDFromMinorUnits creates a USD Money from an amount in cents.
func NewUSDFromMinorUnits(cents int64) Money {
	return Money{amount: decimal.New(cents, -2), currency: DefaultCurrency}
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency string) Money {
	m, err := NewMoney(decimal.Zero, currency)
	if err != nil {
		return Money{amount: decimal.Zero, currency: DefaultCurrency}
	}
	return m
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string {
	if m.currency == "" {
		return DefaultCurrency
	}
	return m.currency
}

// MinorUnits converts the amount to the currency's minor unit (cents for
// USD). The conversion must be exact: an amount with a sub-minor-unit
// fraction is rejected rather than rounded.
func (m Money) MinorUnits() (int64, error) {
	digits, ok := minorUnitDigits[m.Currency()]
	if !ok {
		digits = 2
	}
	scaled := m.amount.Shift(digits)
	if !scaled.IsInteger() {
		return 0, shared.NewDomainError("INEXACT_AMOUNT",
			fmt.Sprintf("amount %s %s has sub-minor-unit precision", m.amount.String(), m.Currency()))
	}
	return scaled.IntPart(), nil
}

func (m Money) assertSameCurrency(other Money) error {
	if m.Currency() != other.Currency() {
		return shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("cannot operate on %s and %s", m.Currency(), other.Currency()))
	}
	return nil
}

// Add returns m + other. Both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.Currency()}, nil
}

// Sub returns m - other. Both operands must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.Currency()}, nil
}

// MulInt returns m multiplied by an integer quantity.
func (m Money) MulInt(n int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(n))), currency: m.Currency()}
}

// Mul returns m multiplied by an arbitrary decimal factor.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.Currency()}
}

// Round returns m rounded to the currency's minor unit, half away from zero.
func (m Money) Round() Money {
	digits, ok := minorUnitDigits[m.Currency()]
	if !ok {
		digits = 2
	}
	return Money{amount: m.amount.Round(digits), currency: m.Currency()}
}

// Percentage returns the given percentage of m, rounded to the minor unit.
// Percent is expressed as a whole number, e.g. 15 for 15%.
func (m Money) Percentage(percent decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(percent).Div(decimal.NewFromInt(100)),
		currency: m.Currency(),
	}.Round()
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Equals reports whether two Money values share currency and amount.
func (m Money) Equals(other Money) bool {
	return m.Currency() == other.Currency() && m.amount.Equal(other.amount)
}

// LessThan reports whether m < other. Cross-currency comparison errors.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan reports whether m > other. Cross-currency comparison errors.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// String formats the money as "19.99 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.String(), m.Currency())
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a decimal string to avoid float drift.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.Currency()})
}

// UnmarshalJSON decodes the {"amount","currency"} form.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so Money can be stored as a JSON column.
func (m Money) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns written by Value.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = ZeroMoney(DefaultCurrency)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	if len(data) == 0 {
		*m = ZeroMoney(DefaultCurrency)
		return nil
	}
	return m.UnmarshalJSON(data)
}
