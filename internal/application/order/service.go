package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/application/checkout"
	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/shared"
)

// Service drives an order through its lifecycle after checkout. Stock
// moves with the status: cancellation before fulfilment releases the
// reservation, payment success deducts it exactly once, cancellation
// after deduction puts the units back on hand.
type Service struct {
	orderRepo      order.Repository
	scope          checkout.TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates an order service. The transaction scope binds
// order and inventory writes together.
func NewService(orderRepo order.Repository, scope checkout.TransactionScope, logger *zap.Logger) *Service {
	return &Service{orderRepo: orderRepo, scope: scope, logger: logger}
}

// SetEventPublisher sets the publisher for domain events.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Get returns an order by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// GetByNumber returns an order by its human-readable number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return s.orderRepo.FindByNumber(ctx, number)
}

// ListByUser returns a user's orders page by page.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return s.orderRepo.ListByUser(ctx, userID, filter)
}

// List returns all orders page by page.
func (s *Service) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return s.orderRepo.List(ctx, filter)
}

// UpdateStatus moves an order along the fulfilment path (ship,
// deliver). Every other status carries stock or payment side effects
// and is only reachable through MarkPaid, Cancel and MarkRefunded.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target order.Status) (*order.Order, error) {
	if target != order.StatusShipped && target != order.StatusDelivered {
		return nil, shared.ErrInvalidState.WithMessage("only fulfilment statuses can be set directly")
	}
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	return o, nil
}

// Cancel cancels an order on the shopper's behalf. Reserved stock is
// released when not yet deducted, restocked when it was.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var cancelled *order.Order
	err := s.scope.Execute(ctx, func(repos checkout.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := o.Cancel(); err != nil {
			return err
		}
		if o.StockDeducted {
			if err := s.restock(ctx, repos.InventoryRepo(), o); err != nil {
				return err
			}
		} else {
			if err := s.releaseReservations(ctx, repos.InventoryRepo(), o); err != nil {
				return err
			}
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, cancelled)
	s.logger.Info("order cancelled", zap.String("order_number", cancelled.OrderNumber))
	return cancelled, nil
}

// MarkPaid handles a confirmed payment: the order moves to PROCESSING
// and its reserved stock is deducted. Both steps are idempotent, so
// duplicate payment notifications are harmless. An order that already
// left the payment window, a success arriving after cancellation for
// example, is returned unchanged so the notification can be
// acknowledged instead of retried forever.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var paid *order.Order
	err := s.scope.Execute(ctx, func(repos checkout.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != order.StatusPending && o.Status != order.StatusProcessing {
			s.logger.Warn("payment confirmed for order outside payment window",
				zap.String("order_number", o.OrderNumber),
				zap.String("status", string(o.Status)))
			paid = o
			return nil
		}
		if o.Status == order.StatusPending {
			if err := o.TransitionTo(order.StatusProcessing); err != nil {
				return err
			}
		}
		if o.MarkStockDeducted() {
			if err := s.deductStock(ctx, repos.InventoryRepo(), o); err != nil {
				return err
			}
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
			return err
		}
		paid = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, paid)
	return paid, nil
}

// MarkRefunded handles a confirmed refund by moving the order to
// REFUNDED. Already-refunded orders pass through unchanged, and so do
// orders whose status cannot reach REFUNDED anymore: a refund
// notification for a cancelled order records nothing but must still be
// acknowledged.
func (s *Service) MarkRefunded(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusRefunded {
		return o, nil
	}
	if err := o.TransitionTo(order.StatusRefunded); err != nil {
		if errors.Is(err, shared.ErrInvalidState) {
			s.logger.Warn("refund confirmed for order that cannot be refunded",
				zap.String("order_number", o.OrderNumber),
				zap.String("status", string(o.Status)))
			return o, nil
		}
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	return o, nil
}

func (s *Service) deductStock(ctx context.Context, repo inventory.Repository, o *order.Order) error {
	for _, li := range o.Items {
		record, err := repo.FindByItemID(ctx, li.ItemID)
		if err != nil {
			return err
		}
		if err := record.Deduct(li.Quantity); err != nil {
			return err
		}
		record.AddDomainEvent(inventory.NewStockDeductedEvent(record.GetID(), li.ItemID, o.GetID(), li.Quantity))
		if err := repo.SaveWithLock(ctx, record); err != nil {
			return err
		}
		s.publishRecordEvents(ctx, record)
	}
	return nil
}

func (s *Service) releaseReservations(ctx context.Context, repo inventory.Repository, o *order.Order) error {
	for _, li := range o.Items {
		record, err := repo.FindByItemID(ctx, li.ItemID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
		if err := record.Release(li.Quantity); err != nil {
			return err
		}
		if err := repo.SaveWithLock(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) restock(ctx context.Context, repo inventory.Repository, o *order.Order) error {
	for _, li := range o.Items {
		record, err := repo.FindByItemID(ctx, li.ItemID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
		if err := record.Receive(li.Quantity); err != nil {
			return err
		}
		if err := repo.SaveWithLock(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil || o == nil {
		return
	}
	for _, event := range o.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish order event",
				zap.String("event_type", event.EventType()), zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}

func (s *Service) publishRecordEvents(ctx context.Context, record *inventory.Record) {
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
