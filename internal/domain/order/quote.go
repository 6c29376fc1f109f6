package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Quote is the priced breakdown of a cart at checkout. Total is always
// subtotal - discount + shipping + tax and never negative.
type Quote struct {
	Subtotal    valueobject.Money `json:"subtotal"`
	Discount    valueobject.Money `json:"discount"`
	ShippingFee valueobject.Money `json:"shipping_fee"`
	Tax         valueobject.Money `json:"tax"`
	Total       valueobject.Money `json:"total"`
	CouponCode  string            `json:"coupon_code,omitempty"`
}

// BuildQuote combines the pieces into a quote, clamping the discount at
// the subtotal so the total cannot go below shipping plus tax.
func BuildQuote(subtotal, discount, shippingFee, tax valueobject.Money, couponCode string) (Quote, error) {
	if exceeds, err := discount.GreaterThan(subtotal); err != nil {
		return Quote{}, err
	} else if exceeds {
		discount = subtotal
	}
	total, err := subtotal.Sub(discount)
	if err != nil {
		return Quote{}, err
	}
	if total, err = total.Add(shippingFee); err != nil {
		return Quote{}, err
	}
	if total, err = total.Add(tax); err != nil {
		return Quote{}, err
	}
	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shippingFee,
		Tax:         tax,
		Total:       total.Round(),
		CouponCode:  couponCode,
	}, nil
}

// ShippingCalculator prices delivery for a quote.
type ShippingCalculator interface {
	Calculate(subtotal valueobject.Money, address valueobject.Address) (valueobject.Money, error)
}

// TaxCalculator prices sales tax on the discounted subtotal.
type TaxCalculator interface {
	Calculate(taxable valueobject.Money, address valueobject.Address) (valueobject.Money, error)
}

// FlatRateShipping charges a flat fee, waived above a threshold.
type FlatRateShipping struct {
	Fee           valueobject.Money
	FreeThreshold valueobject.Money
}

func (f FlatRateShipping) Calculate(subtotal valueobject.Money, _ valueobject.Address) (valueobject.Money, error) {
	if f.FreeThreshold.IsPositive() {
		qualifies, err := subtotal.GreaterThan(f.FreeThreshold)
		if err != nil {
			return valueobject.Money{}, err
		}
		if qualifies || subtotal.Equals(f.FreeThreshold) {
			return valueobject.ZeroMoney(subtotal.Currency()), nil
		}
	}
	return f.Fee, nil
}

// FlatRateTax applies a single percentage to the taxable amount.
type FlatRateTax struct {
	Percent decimal.Decimal
}

func (f FlatRateTax) Calculate(taxable valueobject.Money, _ valueobject.Address) (valueobject.Money, error) {
	return taxable.Percentage(f.Percent), nil
}

// RateTableShipping picks the fee from a per-country table, falling
// back to Default for destinations without an entry. The free-shipping
// threshold applies regardless of destination.
type RateTableShipping struct {
	Rates         map[string]valueobject.Money
	Default       valueobject.Money
	FreeThreshold valueobject.Money
}

func (r RateTableShipping) Calculate(subtotal valueobject.Money, address valueobject.Address) (valueobject.Money, error) {
	if r.FreeThreshold.IsPositive() {
		qualifies, err := subtotal.GreaterThan(r.FreeThreshold)
		if err != nil {
			return valueobject.Money{}, err
		}
		if qualifies || subtotal.Equals(r.FreeThreshold) {
			return valueobject.ZeroMoney(subtotal.Currency()), nil
		}
	}
	if fee, ok := r.Rates[address.Country]; ok {
		return fee, nil
	}
	return r.Default, nil
}

// RateTableTax looks up the percentage by the destination state,
// falling back to DefaultPercent for states without an entry.
type RateTableTax struct {
	Percents       map[string]decimal.Decimal
	DefaultPercent decimal.Decimal
}

func (r RateTableTax) Calculate(taxable valueobject.Money, address valueobject.Address) (valueobject.Money, error) {
	if percent, ok := r.Percents[address.State]; ok {
		return taxable.Percentage(percent), nil
	}
	return taxable.Percentage(r.DefaultPercent), nil
}

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber produces a human-readable order number of the
// form ORD-20260901-7K3QF2. The suffix is random; uniqueness is
// enforced by the orders table index.
func GenerateOrderNumber(now time.Time) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			suffix[i] = numberAlphabet[0]
			continue
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
