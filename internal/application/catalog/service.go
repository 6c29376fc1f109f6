package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/catalog"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Service manages the sellable catalog.
type Service struct {
	catalogRepo catalog.Repository
	logger      *zap.Logger
}

// NewService creates a catalog service.
func NewService(catalogRepo catalog.Repository, logger *zap.Logger) *Service {
	return &Service{catalogRepo: catalogRepo, logger: logger}
}

// CreateItemRequest carries the fields for a new catalog item.
type CreateItemRequest struct {
	SKU    string `json:"sku" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Artist string `json:"artist"`
	Format string `json:"format"`
	Price  string `json:"price" binding:"required"`
}

// CreateItem adds a new item, rejecting duplicate SKUs.
func (s *Service) CreateItem(ctx context.Context, req CreateItemRequest) (*catalog.Item, error) {
	if existing, err := s.catalogRepo.FindBySKU(ctx, req.SKU); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists.WithMessage("sku already in use: " + req.SKU)
	}
	price, err := valueobject.NewMoneyFromString(req.Price, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	item, err := catalog.NewItem(req.SKU, req.Title, req.Artist, price)
	if err != nil {
		return nil, err
	}
	if req.Format != "" {
		if err := item.SetFormat(req.Format); err != nil {
			return nil, err
		}
	}
	if err := s.catalogRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("catalog item created",
		zap.String("sku", item.SKU), zap.String("title", item.Title))
	return item, nil
}

// Get returns an item by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	return s.catalogRepo.FindByID(ctx, id)
}

// List returns catalog items page by page.
func (s *Service) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*catalog.Item], error) {
	return s.catalogRepo.List(ctx, filter)
}

// SetPrice updates an item's list price. Cart snapshots refresh on
// their next sync; order snapshots never change.
func (s *Service) SetPrice(ctx context.Context, id uuid.UUID, price string) (*catalog.Item, error) {
	item, err := s.catalogRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	parsed, err := valueobject.NewMoneyFromString(price, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	if parsed.IsNegative() || parsed.IsZero() {
		return nil, shared.ErrInvalidInput.WithMessage("price must be positive")
	}
	item.Price = parsed
	item.MarkUpdated()
	if err := s.catalogRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetSalePrice puts an item on sale; an empty price clears the sale.
func (s *Service) SetSalePrice(ctx context.Context, id uuid.UUID, price string) (*catalog.Item, error) {
	item, err := s.catalogRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sale := valueobject.ZeroMoney(valueobject.DefaultCurrency)
	if price != "" {
		if sale, err = valueobject.NewMoneyFromString(price, valueobject.DefaultCurrency); err != nil {
			return nil, err
		}
	}
	if err := item.SetSalePrice(sale); err != nil {
		return nil, err
	}
	if err := s.catalogRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetActive toggles whether an item is sellable.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*catalog.Item, error) {
	item, err := s.catalogRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		item.Activate()
	} else {
		item.Deactivate()
	}
	if err := s.catalogRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
