package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/domain/catalog"
	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Service converts a cart into a PENDING order. The conversion is
// all-or-nothing: every line's stock is reserved, the coupon is
// redeemed, the order is written and the cart cleared inside one
// transaction. Any failure leaves everything untouched.
type Service struct {
	scope          TransactionScope
	catalogRepo    catalog.Repository
	shippingCalc   order.ShippingCalculator
	taxCalc        order.TaxCalculator
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a checkout service.
func NewService(
	scope TransactionScope,
	catalogRepo catalog.Repository,
	shippingCalc order.ShippingCalculator,
	taxCalc order.TaxCalculator,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:        scope,
		catalogRepo:  catalogRepo,
		shippingCalc: shippingCalc,
		taxCalc:      taxCalc,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher for domain events.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Request carries the checkout inputs. BillingAddress is optional and
// defaults to the shipping address.
type Request struct {
	Owner           cart.Owner
	UserID          uuid.UUID
	ShippingAddress valueobject.Address
	BillingAddress  valueobject.Address
}

// CreateOrder performs the checkout for the owner's cart.
func (s *Service) CreateOrder(ctx context.Context, req Request) (*order.Order, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	var created *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.CartRepo().FindByOwner(ctx, req.Owner)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return shared.ErrCartEmpty
		}

		items, err := s.buildLineItems(ctx, c)
		if err != nil {
			return err
		}

		if err := s.reserveStock(ctx, repos.InventoryRepo(), c); err != nil {
			return err
		}

		subtotal := c.Subtotal()
		discount := valueobject.ZeroMoney(subtotal.Currency())
		if c.CouponCode != "" {
			discount, err = s.redeemCoupon(ctx, repos, c.CouponCode, subtotal)
			if err != nil {
				return err
			}
		}

		shippingFee, err := s.shippingCalc.Calculate(subtotal, req.ShippingAddress)
		if err != nil {
			return err
		}
		taxable, err := subtotal.Sub(discount)
		if err != nil {
			return err
		}
		tax, err := s.taxCalc.Calculate(taxable, req.ShippingAddress)
		if err != nil {
			return err
		}

		quote, err := order.BuildQuote(subtotal, discount, shippingFee, tax, c.CouponCode)
		if err != nil {
			return err
		}

		o, err := order.New(order.GenerateOrderNumber(time.Now()), items, quote, req.ShippingAddress)
		if err != nil {
			return err
		}
		if !req.BillingAddress.IsZero() {
			if err := o.SetBillingAddress(req.BillingAddress); err != nil {
				return err
			}
		}
		o.UserID = req.UserID
		if !req.Owner.IsUser() {
			o.SessionID = req.Owner.SessionID
		}
		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}

		c.Clear()
		if err := repos.CartRepo().Save(ctx, c); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, created)
	s.logger.Info("order created",
		zap.String("order_number", created.OrderNumber),
		zap.String("total", created.Total.String()))
	return created, nil
}

// buildLineItems re-snapshots every cart line from the catalog and
// converts it into an order line. Prices are refreshed here, inside the
// checkout transaction, so the shopper pays current prices even when
// the storefront never ran a cart sync. The caller computes the
// subtotal after this runs.
func (s *Service) buildLineItems(ctx context.Context, c *cart.Cart) ([]*order.LineItem, error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, li := range c.Items {
		ids = append(ids, li.ItemID)
	}
	catalogItems, err := s.catalogRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Item, len(catalogItems))
	for _, it := range catalogItems {
		byID[it.GetID()] = it
	}

	items := make([]*order.LineItem, 0, len(c.Items))
	for _, li := range c.Items {
		item, ok := byID[li.ItemID]
		if !ok {
			return nil, shared.ErrNotFound.WithMessage("cart references a missing catalog item")
		}
		li.Title = item.Title
		li.Artist = item.Artist
		li.Format = item.Format
		li.UnitPrice = item.EffectivePrice()
		items = append(items, &order.LineItem{
			BaseEntity: shared.NewBaseEntity(),
			ItemID:     li.ItemID,
			SKU:        item.SKU,
			Title:      li.Title,
			Artist:     li.Artist,
			Format:     li.Format,
			UnitPrice:  li.UnitPrice,
			Quantity:   li.Quantity,
		})
	}
	return items, nil
}

// reserveStock reserves every line's quantity under optimistic locks.
// The first shortage or version conflict aborts the transaction.
func (s *Service) reserveStock(ctx context.Context, repo inventory.Repository, c *cart.Cart) error {
	for _, li := range c.Items {
		record, err := repo.FindByItemID(ctx, li.ItemID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrInsufficientStock.WithMessage("item is out of stock: " + li.Title)
			}
			return err
		}
		if err := record.Reserve(li.Quantity); err != nil {
			return err
		}
		if err := repo.SaveWithLock(ctx, record); err != nil {
			return err
		}
		s.publishRecordEvents(ctx, record)
	}
	return nil
}

// redeemCoupon revalidates the attached coupon at conversion time and
// burns one use. A coupon that went stale since it was applied aborts
// the checkout with the specific rejection reason.
func (s *Service) redeemCoupon(ctx context.Context, repos TransactionalRepositories, code string, subtotal valueobject.Money) (valueobject.Money, error) {
	coupon, err := repos.CouponRepo().FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return valueobject.Money{}, shared.ErrCouponNotFound
		}
		return valueobject.Money{}, err
	}
	if err := coupon.CanApply(subtotal, time.Now()); err != nil {
		return valueobject.Money{}, err
	}
	discount := coupon.ComputeDiscount(subtotal)
	if err := coupon.RecordUsage(); err != nil {
		return valueobject.Money{}, err
	}
	if err := repos.CouponRepo().SaveWithLock(ctx, coupon); err != nil {
		return valueobject.Money{}, err
	}
	return discount, nil
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
