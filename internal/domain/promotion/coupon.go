package promotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// DiscountType determines how a coupon's value is interpreted.
type DiscountType string

const (
	// DiscountPercentage treats Value as a percentage of the subtotal.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixed treats Value as a flat amount off the subtotal.
	DiscountFixed DiscountType = "FIXED"
)

// Rejection reasons returned by CanApply. Callers surface these to the
// shopper, so each failure mode gets its own error.
var (
	ErrCouponInactive   = shared.NewDomainError("COUPON_INACTIVE", "Coupon is not active")
	ErrCouponNotStarted = shared.NewDomainError("COUPON_NOT_STARTED", "Coupon is not yet valid")
	ErrCouponExpired    = shared.NewDomainError("COUPON_EXPIRED", "Coupon has expired")
	ErrCouponExhausted  = shared.NewDomainError("COUPON_EXHAUSTED", "Coupon usage limit reached")
	ErrCouponMinimumNot = shared.NewDomainError("COUPON_MINIMUM_NOT_MET", "Cart subtotal below coupon minimum")
)

// Coupon is a discount code. Value is a percentage (0-100) for
// percentage coupons or a money amount for fixed ones. A zero StartsAt
// means valid immediately, a zero ExpiresAt means no expiry, and a zero
// UsageLimit means unlimited uses.
type Coupon struct {
	shared.BaseAggregateRoot
	Code        string            `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Type        DiscountType      `gorm:"size:16;not null" json:"type"`
	Value       decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"value"`
	MinSubtotal valueobject.Money `gorm:"type:json" json:"min_subtotal"`
	MaxDiscount valueobject.Money `gorm:"type:json" json:"max_discount"`
	StartsAt    time.Time         `json:"starts_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	UsageLimit  int               `gorm:"not null;default:0" json:"usage_limit"`
	UsageCount  int               `gorm:"not null;default:0" json:"usage_count"`
	Active      bool              `gorm:"not null;default:true" json:"active"`
}

// NewCoupon creates an active coupon. Codes are case sensitive; only
// surrounding whitespace is stripped.
func NewCoupon(code string, discountType DiscountType, value decimal.Decimal) (*Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("coupon code is required")
	}
	switch discountType {
	case DiscountPercentage:
		if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, shared.ErrInvalidInput.WithMessage("percentage must be between 0 and 100")
		}
	case DiscountFixed:
		if value.LessThanOrEqual(decimal.Zero) {
			return nil, shared.ErrInvalidInput.WithMessage("fixed discount must be positive")
		}
	default:
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown discount type: %s", discountType))
	}
	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Type:              discountType,
		Value:             value,
		Active:            true,
	}, nil
}

// CanApply checks every eligibility rule against the given subtotal at
// the given time, returning the first failure with a specific reason.
func (c *Coupon) CanApply(subtotal valueobject.Money, now time.Time) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if !c.StartsAt.IsZero() && now.Before(c.StartsAt) {
		return ErrCouponNotStarted
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return ErrCouponExhausted
	}
	if c.MinSubtotal.IsPositive() {
		below, err := subtotal.LessThan(c.MinSubtotal)
		if err != nil {
			return err
		}
		if below {
			return ErrCouponMinimumNot.WithMessage(
				fmt.Sprintf("subtotal must be at least %s", c.MinSubtotal.String()))
		}
	}
	return nil
}

// ComputeDiscount returns the discount amount for a subtotal. The
// result never exceeds the subtotal, so totals cannot go negative.
func (c *Coupon) ComputeDiscount(subtotal valueobject.Money) valueobject.Money {
	var discount valueobject.Money
	switch c.Type {
	case DiscountPercentage:
		discount = subtotal.Percentage(c.Value)
		if c.MaxDiscount.IsPositive() {
			if exceeds, err := discount.GreaterThan(c.MaxDiscount); err == nil && exceeds {
				discount = c.MaxDiscount
			}
		}
	case DiscountFixed:
		discount = valueobject.MustMoney(c.Value, subtotal.Currency())
	default:
		return valueobject.ZeroMoney(subtotal.Currency())
	}
	if exceeds, err := discount.GreaterThan(subtotal); err == nil && exceeds {
		return subtotal
	}
	return discount
}

// RecordUsage counts a redemption. Called inside the checkout
// transaction after the order is created.
func (c *Coupon) RecordUsage() error {
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return ErrCouponExhausted
	}
	c.UsageCount++
	c.MarkUpdated()
	return nil
}

// SetMinSubtotal requires a minimum cart subtotal for eligibility.
func (c *Coupon) SetMinSubtotal(min valueobject.Money) error {
	if min.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("minimum subtotal cannot be negative")
	}
	c.MinSubtotal = min
	c.MarkUpdated()
	return nil
}

// SetMaxDiscount caps the amount a percentage coupon can take off.
func (c *Coupon) SetMaxDiscount(max valueobject.Money) error {
	if max.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("maximum discount cannot be negative")
	}
	c.MaxDiscount = max
	c.MarkUpdated()
	return nil
}

// SetValidity sets the window in which the coupon applies. Either bound
// may be zero to leave that side open.
func (c *Coupon) SetValidity(startsAt, expiresAt time.Time) error {
	if !startsAt.IsZero() && !expiresAt.IsZero() && expiresAt.Before(startsAt) {
		return shared.ErrInvalidInput.WithMessage("expiry must not precede start")
	}
	c.StartsAt = startsAt
	c.ExpiresAt = expiresAt
	c.MarkUpdated()
	return nil
}

// SetExpiry sets the time after which the coupon stops applying.
func (c *Coupon) SetExpiry(expiresAt time.Time) {
	c.ExpiresAt = expiresAt
	c.MarkUpdated()
}

// SetUsageLimit caps total redemptions. Zero removes the cap.
func (c *Coupon) SetUsageLimit(limit int) error {
	if limit < 0 {
		return shared.ErrInvalidInput.WithMessage("usage limit cannot be negative")
	}
	c.UsageLimit = limit
	c.MarkUpdated()
	return nil
}

// Deactivate disables the coupon without deleting its redemption history.
func (c *Coupon) Deactivate() {
	c.Active = false
	c.MarkUpdated()
}

func (c *Coupon) TableName() string {
	return "coupons"
}

// Repository persists coupons. SaveWithLock guards the usage counter
// against concurrent redemptions.
type Repository interface {
	Save(ctx context.Context, coupon *Coupon) error
	SaveWithLock(ctx context.Context, coupon *Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Coupon], error)
}
