package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/application/checkout"
	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/domain/catalog"
	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/promotion"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Service handles cart operations: building the working set of items,
// coupon application, and the guest-to-user merge on login.
type Service struct {
	cartRepo      cart.Repository
	catalogRepo   catalog.Repository
	inventoryRepo inventory.Repository
	couponRepo    promotion.Repository
	scope         checkout.TransactionScope
	logger        *zap.Logger
}

// NewService creates a cart service. The transaction scope binds the
// writes of the login merge together.
func NewService(
	cartRepo cart.Repository,
	catalogRepo catalog.Repository,
	inventoryRepo inventory.Repository,
	couponRepo promotion.Repository,
	scope checkout.TransactionScope,
	logger *zap.Logger,
) *Service {
	return &Service{
		cartRepo:      cartRepo,
		catalogRepo:   catalogRepo,
		inventoryRepo: inventoryRepo,
		couponRepo:    couponRepo,
		scope:         scope,
		logger:        logger,
	}
}

// GetOrCreate returns the owner's cart, creating an empty one if none
// exists yet.
func (s *Service) GetOrCreate(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	existing, err := s.cartRepo.FindByOwner(ctx, owner)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	created, err := cart.NewCart(owner)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// AdoptSessionCart runs on login. The guest cart for the session is
// merged into the user's cart when one exists, or re-owned to the user
// when not. Quantities for items in both carts are summed. The merge
// writes, saving the user cart and deleting the guest cart, happen in
// one transaction so a failure cannot leave the shopper with both.
func (s *Service) AdoptSessionCart(ctx context.Context, sessionID string, userID uuid.UUID) (*cart.Cart, error) {
	sessionOwner, err := cart.SessionOwner(sessionID)
	if err != nil {
		return nil, err
	}
	userOwner, err := cart.UserOwner(userID)
	if err != nil {
		return nil, err
	}

	var adopted *cart.Cart
	err = s.scope.Execute(ctx, func(repos checkout.TransactionalRepositories) error {
		carts := repos.CartRepo()

		guestCart, guestErr := carts.FindByOwner(ctx, sessionOwner)
		if guestErr != nil && !errors.Is(guestErr, shared.ErrNotFound) {
			return guestErr
		}

		userCart, userErr := carts.FindByOwner(ctx, userOwner)
		if userErr != nil && !errors.Is(userErr, shared.ErrNotFound) {
			return userErr
		}

		switch {
		case guestErr != nil && userErr != nil:
			// Neither cart exists; start fresh for the user.
			created, err := cart.NewCart(userOwner)
			if err != nil {
				return err
			}
			if err := carts.Save(ctx, created); err != nil {
				return err
			}
			adopted = created
			return nil
		case guestErr != nil:
			adopted = userCart
			return nil
		case userErr != nil:
			// Only the guest cart exists; transfer ownership.
			if err := guestCart.ReOwn(userID); err != nil {
				return err
			}
			if err := carts.Save(ctx, guestCart); err != nil {
				return err
			}
			adopted = guestCart
			return nil
		}

		if err := userCart.MergeFrom(guestCart); err != nil {
			return err
		}
		if err := carts.Save(ctx, userCart); err != nil {
			return err
		}
		if err := carts.Delete(ctx, guestCart.GetID()); err != nil {
			return err
		}
		s.logger.Info("merged guest cart into user cart",
			zap.String("user_id", userID.String()),
			zap.Int("merged_lines", len(guestCart.Items)))
		adopted = userCart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adopted, nil
}

// AddItem adds qty units of a catalog item, snapshotting its current
// price. The request is rejected when the resulting quantity would
// exceed available stock.
func (s *Service) AddItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID, qty int) (*cart.Cart, error) {
	c, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	item, err := s.catalogRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, shared.ErrInvalidState.WithMessage("item is not available for sale")
	}
	if err := s.checkAvailability(ctx, itemID, c.Quantity(itemID)+qty); err != nil {
		return nil, err
	}
	snap := cart.ItemSnapshot{
		ItemID:    item.GetID(),
		Title:     item.Title,
		Artist:    item.Artist,
		Format:    item.Format,
		UnitPrice: item.EffectivePrice(),
	}
	if err := c.AddItem(snap, qty); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetQuantity sets an item's quantity to an absolute value, removing
// the line at zero. Increases are checked against available stock.
func (s *Service) SetQuantity(ctx context.Context, owner cart.Owner, itemID uuid.UUID, qty int) (*cart.Cart, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if qty > c.Quantity(itemID) {
		if err := s.checkAvailability(ctx, itemID, qty); err != nil {
			return nil, err
		}
	}
	if err := c.SetQuantity(itemID, qty); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID) (*cart.Cart, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(itemID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyCoupon validates a coupon against the cart's current subtotal
// and attaches it. Each eligibility failure returns its own error code
// so the shopper learns why the code was rejected.
func (s *Service) ApplyCoupon(ctx context.Context, owner cart.Owner, code string) (*cart.Cart, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrCouponNotFound
		}
		return nil, err
	}
	if err := coupon.CanApply(c.Subtotal(), time.Now()); err != nil {
		return nil, err
	}
	if err := c.ApplyCoupon(coupon.Code); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveCoupon detaches any applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	c.RemoveCoupon()
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart, dropping every line and any applied coupon.
func (s *Service) Clear(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// View is a cart with its priced totals. The discount is a preview of
// what the applied coupon would take off at checkout; a coupon that
// has gone stale since it was applied previews as zero.
type View struct {
	*cart.Cart
	Subtotal valueobject.Money `json:"subtotal"`
	Discount valueobject.Money `json:"discount"`
	Total    valueobject.Money `json:"total"`
}

// BuildView prices a cart for display.
func (s *Service) BuildView(ctx context.Context, c *cart.Cart) (*View, error) {
	subtotal := c.Subtotal()
	discount := valueobject.ZeroMoney(subtotal.Currency())

	if c.CouponCode != "" {
		coupon, err := s.couponRepo.FindByCode(ctx, c.CouponCode)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			// Coupon deleted since it was applied; preview without it.
		case err != nil:
			return nil, err
		case coupon.CanApply(subtotal, time.Now()) == nil:
			discount = coupon.ComputeDiscount(subtotal)
		}
	}

	total, err := subtotal.Sub(discount)
	if err != nil {
		return nil, err
	}
	return &View{Cart: c, Subtotal: subtotal, Discount: discount, Total: total}, nil
}

// PriceChange reports a line whose snapshot drifted from the catalog.
type PriceChange struct {
	ItemID   uuid.UUID `json:"item_id"`
	Title    string    `json:"title"`
	OldPrice string    `json:"old_price"`
	NewPrice string    `json:"new_price"`
}

// SyncPrices refreshes every line's price snapshot against the catalog
// and reports which lines changed. Called before showing checkout.
func (s *Service) SyncPrices(ctx context.Context, owner cart.Owner) (*cart.Cart, []PriceChange, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if c.IsEmpty() {
		return c, nil, nil
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, li := range c.Items {
		ids = append(ids, li.ItemID)
	}
	items, err := s.catalogRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Item, len(items))
	for _, it := range items {
		byID[it.GetID()] = it
	}

	var changes []PriceChange
	for _, li := range c.Items {
		item, ok := byID[li.ItemID]
		if !ok {
			continue
		}
		current := item.EffectivePrice()
		if !li.UnitPrice.Equals(current) {
			changes = append(changes, PriceChange{
				ItemID:   li.ItemID,
				Title:    li.Title,
				OldPrice: li.UnitPrice.String(),
				NewPrice: current.String(),
			})
			li.UnitPrice = current
		}
	}
	if len(changes) > 0 {
		c.Touch()
		if err := s.cartRepo.Save(ctx, c); err != nil {
			return nil, nil, err
		}
	}
	return c, changes, nil
}

// StockIssue reports a line the warehouse cannot currently fulfil.
type StockIssue struct {
	ItemID    uuid.UUID `json:"item_id"`
	Title     string    `json:"title"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// ValidateStock checks every line against available stock without
// reserving anything. Checkout performs the authoritative reservation.
func (s *Service) ValidateStock(ctx context.Context, owner cart.Owner) ([]StockIssue, error) {
	c, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, li := range c.Items {
		ids = append(ids, li.ItemID)
	}
	records, err := s.inventoryRepo.FindByItemIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byItem := make(map[uuid.UUID]*inventory.Record, len(records))
	for _, r := range records {
		byItem[r.ItemID] = r
	}

	var issues []StockIssue
	for _, li := range c.Items {
		record, ok := byItem[li.ItemID]
		available := 0
		if ok {
			available = record.Available()
		}
		if li.Quantity > available {
			issues = append(issues, StockIssue{
				ItemID:    li.ItemID,
				Title:     li.Title,
				Requested: li.Quantity,
				Available: available,
			})
		}
	}
	return issues, nil
}

// PurgeExpired deletes carts whose TTL has passed. Run periodically.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.cartRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("purged expired carts", zap.Int64("count", purged))
	}
	return purged, nil
}

func (s *Service) checkAvailability(ctx context.Context, itemID uuid.UUID, wanted int) error {
	record, err := s.inventoryRepo.FindByItemID(ctx, itemID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInsufficientStock.WithMessage("item is out of stock")
		}
		return err
	}
	if !record.CanFulfill(wanted) {
		return shared.ErrInsufficientStock
	}
	return nil
}
