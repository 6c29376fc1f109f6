package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/domain/shared"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// Save persists the cart and its line items. Removed lines are deleted
// so the stored cart always mirrors the aggregate.
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", c.ID).Delete(&cart.LineItem{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(c).Error
	})
}

// FindByID finds a cart with its items by ID
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.db.WithContext(ctx).Preload("Items").First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByOwner finds the cart belonging to a session or user
func (r *GormCartRepository) FindByOwner(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if owner.IsUser() {
		query = query.Where("owner_type = ? AND owner_user_id = ?", cart.OwnerUser, owner.UserID)
	} else {
		query = query.Where("owner_type = ? AND owner_session_id = ?", cart.OwnerSession, owner.SessionID)
	}

	var c cart.Cart
	if err := query.First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Delete removes a cart and its items
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&cart.LineItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&cart.Cart{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteExpired removes carts whose TTL passed before the cutoff
func (r *GormCartRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&cart.Cart{}).Where("expires_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("cart_id IN ?", ids).Delete(&cart.LineItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&cart.Cart{}, "id IN ?", ids)
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return nil
	})
	return purged, err
}

var _ cart.Repository = (*GormCartRepository)(nil)
