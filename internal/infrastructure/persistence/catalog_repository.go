package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recordshop/backend/internal/domain/catalog"
	"github.com/recordshop/backend/internal/domain/shared"
)

// GormCatalogRepository implements catalog.Repository using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// Save creates or updates a catalog item
func (r *GormCatalogRepository) Save(ctx context.Context, item *catalog.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// FindByID finds an item by its ID
func (r *GormCatalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	var item catalog.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDs finds multiple items by their IDs
func (r *GormCatalogRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Item, error) {
	if len(ids) == 0 {
		return []*catalog.Item{}, nil
	}
	var items []*catalog.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBySKU finds an item by its SKU
func (r *GormCatalogRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Item, error) {
	var item catalog.Item
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// List returns items page by page, optionally matching a search term
// against title and artist
func (r *GormCatalogRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*catalog.Item], error) {
	query := r.db.WithContext(ctx).Model(&catalog.Item{})
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR artist LIKE ?", term, term)
	}
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []*catalog.Item
	if err := applyFilter(query, filter).Find(&items).Error; err != nil {
		return nil, err
	}
	p := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &p, nil
}

var _ catalog.Repository = (*GormCatalogRepository)(nil)
