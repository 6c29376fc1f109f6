package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recordshop/backend/internal/domain/promotion"
	"github.com/recordshop/backend/internal/domain/shared"
)

// GormCouponRepository implements promotion.Repository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Save creates or updates a coupon
func (r *GormCouponRepository) Save(ctx context.Context, c *promotion.Coupon) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// SaveWithLock updates a coupon under optimistic locking, guarding the
// usage counter against concurrent redemptions.
func (r *GormCouponRepository) SaveWithLock(ctx context.Context, c *promotion.Coupon) error {
	result := r.db.WithContext(ctx).
		Model(c).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"usage_count": c.UsageCount,
			"usage_limit": c.UsageLimit,
			"active":      c.Active,
			"expires_at":  c.ExpiresAt,
			"version":     c.Version + 1,
			"updated_at":  c.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("coupon was modified by another transaction")
	}
	c.IncrementVersion()
	return nil
}

// FindByID finds a coupon by its ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	var c promotion.Coupon
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByCode finds a coupon by its exact code. Codes are case
// sensitive; only surrounding whitespace is stripped.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	var c promotion.Coupon
	code = strings.TrimSpace(code)
	if err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns coupons page by page
func (r *GormCouponRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*promotion.Coupon], error) {
	query := r.db.WithContext(ctx).Model(&promotion.Coupon{})
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var coupons []*promotion.Coupon
	if err := applyFilter(query, filter).Find(&coupons).Error; err != nil {
		return nil, err
	}
	p := shared.NewPaginated(coupons, total, filter.Page, filter.PageSize)
	return &p, nil
}

var _ promotion.Repository = (*GormCouponRepository)(nil)
