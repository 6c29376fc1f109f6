package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save persists an order with its line items
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(o).Error
}

// SaveWithLock updates an order's mutable state under optimistic
// locking. Line items are immutable after creation and are not touched.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	result := r.db.WithContext(ctx).
		Model(o).
		Where("id = ? AND version = ?", o.ID, o.Version).
		Updates(map[string]interface{}{
			"status":            o.Status,
			"payment_intent_id": o.PaymentIntentID,
			"stock_deducted":    o.StockDeducted,
			"cancelled_at":      o.CancelledAt,
			"version":           o.Version + 1,
			"updated_at":        o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("order was modified by another transaction")
	}
	o.IncrementVersion()
	return nil
}

// FindByID finds an order with its items by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByNumber finds an order by its human-readable number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "order_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByPaymentIntent finds the order linked to a gateway intent
func (r *GormOrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "payment_intent_id = ?", intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListByUser returns a user's orders page by page
func (r *GormOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&order.Order{}).Where("user_id = ?", userID), filter)
}

// List returns all orders page by page
func (r *GormOrderRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	return r.list(ctx, query, filter)
}

func (r *GormOrderRepository) list(_ context.Context, query *gorm.DB, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []*order.Order
	if err := applyFilter(query, filter).Preload("Items").Find(&orders).Error; err != nil {
		return nil, err
	}
	p := shared.NewPaginated(orders, total, filter.Page, filter.PageSize)
	return &p, nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
