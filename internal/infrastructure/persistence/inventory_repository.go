package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/shared"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// Save creates or updates a stock record
func (r *GormInventoryRepository) Save(ctx context.Context, record *inventory.Record) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// SaveWithLock updates a stock record under optimistic locking. The
// write only lands when nobody bumped the version since this record
// was loaded; otherwise the caller gets a concurrency conflict and
// should reload and retry.
func (r *GormInventoryRepository) SaveWithLock(ctx context.Context, record *inventory.Record) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]interface{}{
			"on_hand":             record.OnHand,
			"reserved":            record.Reserved,
			"low_stock_threshold": record.LowStockThreshold,
			"version":             record.Version + 1,
			"updated_at":          record.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("stock record was modified by another transaction")
	}
	record.IncrementVersion()
	return nil
}

// FindByID finds a stock record by its ID
func (r *GormInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Record, error) {
	var record inventory.Record
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByItemID finds the stock record for a catalog item
func (r *GormInventoryRepository) FindByItemID(ctx context.Context, itemID uuid.UUID) (*inventory.Record, error) {
	var record inventory.Record
	if err := r.db.WithContext(ctx).First(&record, "item_id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByItemIDs finds stock records for multiple catalog items
func (r *GormInventoryRepository) FindByItemIDs(ctx context.Context, itemIDs []uuid.UUID) ([]*inventory.Record, error) {
	if len(itemIDs) == 0 {
		return []*inventory.Record{}, nil
	}
	var records []*inventory.Record
	if err := r.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// List returns stock records page by page
func (r *GormInventoryRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*inventory.Record], error) {
	query := r.db.WithContext(ctx).Model(&inventory.Record{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []*inventory.Record
	if err := applyFilter(query, filter).Find(&records).Error; err != nil {
		return nil, err
	}
	p := shared.NewPaginated(records, total, filter.Page, filter.PageSize)
	return &p, nil
}

// ListLowStock returns records at or below their alert threshold
func (r *GormInventoryRepository) ListLowStock(ctx context.Context) ([]*inventory.Record, error) {
	var records []*inventory.Record
	if err := r.db.WithContext(ctx).
		Where("low_stock_threshold > 0 AND (on_hand - reserved) <= low_stock_threshold").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// applyFilter applies pagination and ordering shared by the list queries
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}
	return query
}

var _ inventory.Repository = (*GormInventoryRepository)(nil)
