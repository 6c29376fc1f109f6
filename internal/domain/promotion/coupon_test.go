package promotion

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

func usd(amount float64) valueobject.Money {
	return valueobject.NewUSD(decimal.NewFromFloat(amount))
}

func TestNewCoupon(t *testing.T) {
	// Codes keep their case: "Save15" and "SAVE15" are distinct coupons.
	c, err := NewCoupon("  Save15 ", DiscountPercentage, decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.Equal(t, "Save15", c.Code)
	assert.True(t, c.Active)

	_, err = NewCoupon("", DiscountFixed, decimal.NewFromInt(5))
	assert.Error(t, err)

	_, err = NewCoupon("BAD", DiscountPercentage, decimal.NewFromInt(150))
	assert.Error(t, err)

	_, err = NewCoupon("BAD", DiscountFixed, decimal.NewFromInt(-5))
	assert.Error(t, err)

	_, err = NewCoupon("BAD", DiscountType("BOGO"), decimal.NewFromInt(5))
	assert.Error(t, err)
}

func TestCouponCanApply(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*Coupon)
		wantErr error
	}{
		{"valid coupon applies", func(c *Coupon) {}, nil},
		{"inactive", func(c *Coupon) { c.Deactivate() }, ErrCouponInactive},
		{"expired", func(c *Coupon) { c.SetExpiry(now.Add(-time.Hour)) }, ErrCouponExpired},
		{"not yet expired", func(c *Coupon) { c.SetExpiry(now.Add(time.Hour)) }, nil},
		{"usage limit reached", func(c *Coupon) {
			require.NoError(t, c.SetUsageLimit(2))
			c.UsageCount = 2
		}, ErrCouponExhausted},
		{"minimum not met", func(c *Coupon) {
			require.NoError(t, c.SetMinSubtotal(usd(100)))
		}, ErrCouponMinimumNot},
		{"minimum exactly met", func(c *Coupon) {
			require.NoError(t, c.SetMinSubtotal(usd(50)))
		}, nil},
		{"not yet started", func(c *Coupon) {
			require.NoError(t, c.SetValidity(now.Add(time.Hour), time.Time{}))
		}, ErrCouponNotStarted},
		{"inside validity window", func(c *Coupon) {
			require.NoError(t, c.SetValidity(now.Add(-time.Hour), now.Add(time.Hour)))
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCoupon("SAVE10", DiscountPercentage, decimal.NewFromInt(10))
			require.NoError(t, err)
			tt.mutate(c)

			err = c.CanApply(usd(50), now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCouponComputeDiscount(t *testing.T) {
	percent, err := NewCoupon("SAVE15", DiscountPercentage, decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.True(t, percent.ComputeDiscount(usd(40)).Equals(usd(6)))

	fixed, err := NewCoupon("FIVEOFF", DiscountFixed, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, fixed.ComputeDiscount(usd(40)).Equals(usd(5)))

	// A fixed discount larger than the subtotal clamps to the subtotal.
	assert.True(t, fixed.ComputeDiscount(usd(3)).Equals(usd(3)))

	// A percentage discount clamps to the cap when one is set.
	capped, err := NewCoupon("BIGSALE", DiscountPercentage, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, capped.SetMaxDiscount(usd(10)))
	assert.True(t, capped.ComputeDiscount(usd(40)).Equals(usd(10)))
	assert.True(t, capped.ComputeDiscount(usd(16)).Equals(usd(8)))
}

func TestCouponValidityWindow(t *testing.T) {
	c, err := NewCoupon("WINDOW", DiscountFixed, decimal.NewFromInt(5))
	require.NoError(t, err)

	now := time.Now()
	assert.Error(t, c.SetValidity(now, now.Add(-time.Hour)))
	require.NoError(t, c.SetValidity(now.Add(-time.Hour), now.Add(time.Hour)))
	assert.NoError(t, c.CanApply(usd(50), now))
}

func TestCouponRecordUsage(t *testing.T) {
	c, err := NewCoupon("ONCE", DiscountFixed, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.NoError(t, c.SetUsageLimit(1))

	require.NoError(t, c.RecordUsage())
	assert.Equal(t, 1, c.UsageCount)

	assert.ErrorIs(t, c.RecordUsage(), ErrCouponExhausted)
	assert.Equal(t, 1, c.UsageCount)
}
