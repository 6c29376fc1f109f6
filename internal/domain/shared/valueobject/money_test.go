package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(19.99), "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(19.99)))

	_, err = NewMoney(decimal.Zero, "DOLLARS")
	assert.Error(t, err)
}

func TestMoneyDefaultCurrency(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(5), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, m.Currency())

	var zero Money
	assert.Equal(t, DefaultCurrency, zero.Currency())
	assert.True(t, zero.IsZero())
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewUSD(decimal.NewFromFloat(10.50))
	b := NewUSD(decimal.NewFromFloat(4.25))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equals(NewUSD(decimal.NewFromFloat(14.75))))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equals(NewUSD(decimal.NewFromFloat(6.25))))

	triple := b.MulInt(3)
	assert.True(t, triple.Equals(NewUSD(decimal.NewFromFloat(12.75))))
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	usd := NewUSD(decimal.NewFromInt(1))
	eur := MustMoney(decimal.NewFromInt(1), "EUR")

	_, err := usd.Add(eur)
	assert.Error(t, err)
	_, err = usd.Sub(eur)
	assert.Error(t, err)
	_, err = usd.LessThan(eur)
	assert.Error(t, err)
}

func TestMoneyMinorUnits(t *testing.T) {
	cents, err := NewUSD(decimal.NewFromFloat(19.99)).MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(1999), cents)

	yen := MustMoney(decimal.NewFromInt(500), "JPY")
	units, err := yen.MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(500), units)

	// Sub-cent precision must error rather than round.
	_, err = NewUSD(decimal.NewFromFloat(19.999)).MinorUnits()
	assert.Error(t, err)
}

func TestMoneyFromMinorUnits(t *testing.T) {
	m := NewUSDFromMinorUnits(1999)
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(19.99)))

	roundTrip, err := m.MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(1999), roundTrip)
}

func TestMoneyPercentage(t *testing.T) {
	m := NewUSD(decimal.NewFromFloat(33.33))
	discount := m.Percentage(decimal.NewFromInt(15))
	assert.True(t, discount.Equals(NewUSD(decimal.NewFromFloat(5.00))))
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := NewUSD(decimal.NewFromFloat(42.10))
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"42.1","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan([]byte(`{"amount":"7.50","currency":"USD"}`)))
	assert.True(t, m.Equals(NewUSD(decimal.NewFromFloat(7.50))))

	var empty Money
	require.NoError(t, empty.Scan(nil))
	assert.True(t, empty.IsZero())
}
