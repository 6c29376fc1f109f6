package promotion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/promotion"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Service handles coupon administration. Validation and redemption live
// in the cart and checkout flows; this service only manages the coupon
// catalogue itself.
type Service struct {
	couponRepo promotion.Repository
	logger     *zap.Logger
}

// NewService creates a promotion service.
func NewService(couponRepo promotion.Repository, logger *zap.Logger) *Service {
	return &Service{couponRepo: couponRepo, logger: logger}
}

// CreateCouponRequest carries the fields for a new coupon.
type CreateCouponRequest struct {
	Code        string `json:"code" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=PERCENTAGE FIXED"`
	Value       string `json:"value" binding:"required"`
	MinSubtotal string `json:"min_subtotal"`
	MaxDiscount string `json:"max_discount"`
	Currency    string `json:"currency"`
	StartsAt    string `json:"starts_at"`
	ExpiresAt   string `json:"expires_at"`
	UsageLimit  int    `json:"usage_limit" binding:"gte=0"`
}

// CreateCoupon creates an active coupon.
func (s *Service) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*promotion.Coupon, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("value must be a decimal number")
	}

	coupon, err := promotion.NewCoupon(req.Code, promotion.DiscountType(req.Type), value)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	if req.MinSubtotal != "" {
		min, err := valueobject.NewMoneyFromString(req.MinSubtotal, currency)
		if err != nil {
			return nil, err
		}
		if err := coupon.SetMinSubtotal(min); err != nil {
			return nil, err
		}
	}
	if req.MaxDiscount != "" {
		max, err := valueobject.NewMoneyFromString(req.MaxDiscount, currency)
		if err != nil {
			return nil, err
		}
		if err := coupon.SetMaxDiscount(max); err != nil {
			return nil, err
		}
	}
	if req.StartsAt != "" || req.ExpiresAt != "" {
		var startsAt, expiresAt time.Time
		if req.StartsAt != "" {
			startsAt, err = time.Parse(time.RFC3339, req.StartsAt)
			if err != nil {
				return nil, shared.ErrInvalidInput.WithMessage("starts_at must be RFC3339")
			}
		}
		if req.ExpiresAt != "" {
			expiresAt, err = time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				return nil, shared.ErrInvalidInput.WithMessage("expires_at must be RFC3339")
			}
		}
		if err := coupon.SetValidity(startsAt, expiresAt); err != nil {
			return nil, err
		}
	}
	if req.UsageLimit > 0 {
		if err := coupon.SetUsageLimit(req.UsageLimit); err != nil {
			return nil, err
		}
	}

	if err := s.couponRepo.Save(ctx, coupon); err != nil {
		return nil, err
	}

	s.logger.Info("coupon created",
		zap.String("code", coupon.Code),
		zap.String("type", string(coupon.Type)),
	)
	return coupon, nil
}

// Get returns a coupon by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	return s.couponRepo.FindByID(ctx, id)
}

// GetByCode returns a coupon by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	return s.couponRepo.FindByCode(ctx, code)
}

// List returns coupons matching the filter.
func (s *Service) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*promotion.Coupon], error) {
	return s.couponRepo.List(ctx, filter)
}

// Deactivate turns a coupon off. Carts already carrying the code fail
// at checkout when the coupon is re-validated.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	coupon, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	coupon.Deactivate()
	if err := s.couponRepo.Save(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}
