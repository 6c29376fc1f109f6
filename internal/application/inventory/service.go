package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/shared"
)

// Service handles warehouse-side stock operations. Reservation and
// deduction happen inside checkout and order workflows; this service
// covers receiving, thresholds, and reporting.
type Service struct {
	inventoryRepo  inventory.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates an inventory service.
func NewService(inventoryRepo inventory.Repository, logger *zap.Logger) *Service {
	return &Service{inventoryRepo: inventoryRepo, logger: logger}
}

// SetEventPublisher sets the publisher for domain events.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ReceiveStock books newly arrived units for an item, creating the
// stock record on first receipt.
func (s *Service) ReceiveStock(ctx context.Context, itemID uuid.UUID, qty int) (*inventory.Record, error) {
	record, err := s.inventoryRepo.FindByItemID(ctx, itemID)
	if errors.Is(err, shared.ErrNotFound) {
		record, err = inventory.NewRecord(itemID, 0)
	}
	if err != nil {
		return nil, err
	}
	if err := record.Receive(qty); err != nil {
		return nil, err
	}
	if err := s.inventoryRepo.SaveWithLock(ctx, record); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, record)
	s.logger.Info("stock received",
		zap.String("item_id", itemID.String()),
		zap.Int("quantity", qty),
		zap.Int("on_hand", record.OnHand))
	return record, nil
}

// SetLowStockThreshold configures the alert level for an item.
func (s *Service) SetLowStockThreshold(ctx context.Context, itemID uuid.UUID, threshold int) (*inventory.Record, error) {
	record, err := s.inventoryRepo.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := record.SetLowStockThreshold(threshold); err != nil {
		return nil, err
	}
	if err := s.inventoryRepo.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetByItem returns the stock record for a catalog item.
func (s *Service) GetByItem(ctx context.Context, itemID uuid.UUID) (*inventory.Record, error) {
	return s.inventoryRepo.FindByItemID(ctx, itemID)
}

// List returns stock records page by page.
func (s *Service) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*inventory.Record], error) {
	return s.inventoryRepo.List(ctx, filter)
}

// ListLowStock returns every record at or below its alert threshold.
func (s *Service) ListLowStock(ctx context.Context) ([]*inventory.Record, error) {
	return s.inventoryRepo.ListLowStock(ctx)
}

// publishEvents drains an aggregate's events to the publisher.
func (s *Service) publishEvents(ctx context.Context, record *inventory.Record) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range record.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish inventory event",
				zap.String("event_type", event.EventType()), zap.Error(err))
		}
	}
	record.ClearDomainEvents()
}
