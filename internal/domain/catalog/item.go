package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Item is a sellable catalog entry. Carts and orders reference items by
// ID but snapshot title and price at the moment they need them.
type Item struct {
	shared.BaseAggregateRoot
	SKU       string            `gorm:"uniqueIndex;size:64;not null" json:"sku"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Artist    string            `gorm:"size:255" json:"artist"`
	Format    string            `gorm:"size:16;not null;default:LP" json:"format"`
	Price     valueobject.Money `gorm:"type:json" json:"price"`
	SalePrice valueobject.Money `gorm:"type:json" json:"sale_price"`
	Active    bool              `gorm:"not null;default:true" json:"active"`
}

// NewItem creates an active catalog item. The format defaults to a
// standard LP pressing; use SetFormat for other editions.
func NewItem(sku, title, artist string, price valueobject.Money) (*Item, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.ErrInvalidInput.WithMessage("sku is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, shared.ErrInvalidInput.WithMessage("title is required")
	}
	if price.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("price cannot be negative")
	}
	return &Item{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Title:             title,
		Artist:            artist,
		Format:            "LP",
		Price:             price,
		Active:            true,
	}, nil
}

// SetFormat records the physical edition (LP, EP, CD, cassette).
func (i *Item) SetFormat(format string) error {
	format = strings.TrimSpace(format)
	if format == "" {
		return shared.ErrInvalidInput.WithMessage("format is required")
	}
	i.Format = format
	i.MarkUpdated()
	return nil
}

// EffectivePrice returns the sale price when one is set, otherwise the
// list price. This is the price carts snapshot.
func (i *Item) EffectivePrice() valueobject.Money {
	if i.SalePrice.IsPositive() {
		return i.SalePrice
	}
	return i.Price
}

// SetSalePrice puts the item on sale. A zero money clears the sale.
func (i *Item) SetSalePrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("sale price cannot be negative")
	}
	i.SalePrice = price
	i.MarkUpdated()
	return nil
}

// Deactivate hides the item from sale. Existing order snapshots keep it.
func (i *Item) Deactivate() {
	i.Active = false
	i.MarkUpdated()
}

// Activate returns the item to sale.
func (i *Item) Activate() {
	i.Active = true
	i.MarkUpdated()
}

func (i *Item) TableName() string {
	return "catalog_items"
}

// Repository persists catalog items.
type Repository interface {
	Save(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Item, error)
	FindBySKU(ctx context.Context, sku string) (*Item, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Item], error)
}
