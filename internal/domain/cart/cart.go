package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// DefaultTTL is how long an untouched cart survives before the expiry
// sweep removes it.
const DefaultTTL = 7 * 24 * time.Hour

// LineItem is one entry in a cart. UnitPrice is a snapshot taken when
// the item was added; SyncPrices refreshes it against the catalog.
type LineItem struct {
	shared.BaseEntity
	CartID    uuid.UUID         `gorm:"type:uuid;index;not null" json:"cart_id"`
	ItemID    uuid.UUID         `gorm:"type:uuid;not null" json:"item_id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Artist    string            `gorm:"size:255" json:"artist"`
	Format    string            `gorm:"size:16" json:"format"`
	UnitPrice valueobject.Money `gorm:"type:json" json:"unit_price"`
	Quantity  int               `gorm:"not null" json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (li *LineItem) LineTotal() valueobject.Money {
	return li.UnitPrice.MulInt(li.Quantity)
}

func (li *LineItem) TableName() string {
	return "cart_items"
}

// Cart is a shopper's working set of items plus an optional coupon.
// It is mutable right up until checkout converts it into an order.
type Cart struct {
	shared.BaseAggregateRoot
	Owner      Owner       `gorm:"embedded" json:"owner"`
	Items      []*LineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CouponCode string      `gorm:"size:64" json:"coupon_code,omitempty"`
	ExpiresAt  time.Time   `gorm:"index;not null" json:"expires_at"`
}

// NewCart creates an empty cart for an owner with the default TTL.
func NewCart(owner Owner) (*Cart, error) {
	if owner.Type != OwnerSession && owner.Type != OwnerUser {
		return nil, shared.ErrInvalidInput.WithMessage("cart owner is required")
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Owner:             owner,
		ExpiresAt:         time.Now().Add(DefaultTTL),
	}, nil
}

// Touch extends the cart's life. Called on every mutation so active
// carts never expire mid-session.
func (c *Cart) Touch() {
	c.ExpiresAt = time.Now().Add(DefaultTTL)
	c.MarkUpdated()
}

// IsExpired reports whether the cart has passed its TTL.
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) findItem(itemID uuid.UUID) *LineItem {
	for _, li := range c.Items {
		if li.ItemID == itemID {
			return li
		}
	}
	return nil
}

// Quantity returns the current quantity of an item, zero if absent.
func (c *Cart) Quantity(itemID uuid.UUID) int {
	if li := c.findItem(itemID); li != nil {
		return li.Quantity
	}
	return 0
}

// ItemSnapshot carries the catalog fields copied onto a cart line when
// an item is added.
type ItemSnapshot struct {
	ItemID    uuid.UUID
	Title     string
	Artist    string
	Format    string
	UnitPrice valueobject.Money
}

// AddItem adds qty units of an item, summing with any existing line.
// The snapshot's display fields and price are taken at call time.
func (c *Cart) AddItem(snap ItemSnapshot, qty int) error {
	if qty <= 0 {
		return shared.ErrInvalidInput.WithMessage("quantity must be positive")
	}
	if li := c.findItem(snap.ItemID); li != nil {
		li.Quantity += qty
		li.Title = snap.Title
		li.Artist = snap.Artist
		li.Format = snap.Format
		li.UnitPrice = snap.UnitPrice
		li.MarkUpdated()
	} else {
		line := &LineItem{
			BaseEntity: shared.NewBaseEntity(),
			CartID:     c.GetID(),
			ItemID:     snap.ItemID,
			Title:      snap.Title,
			Artist:     snap.Artist,
			Format:     snap.Format,
			UnitPrice:  snap.UnitPrice,
			Quantity:   qty,
		}
		c.Items = append(c.Items, line)
	}
	c.Touch()
	return nil
}

// SetQuantity sets an item's quantity to an absolute value. Zero
// removes the line.
func (c *Cart) SetQuantity(itemID uuid.UUID, qty int) error {
	if qty < 0 {
		return shared.ErrInvalidInput.WithMessage("quantity cannot be negative")
	}
	li := c.findItem(itemID)
	if li == nil {
		return shared.ErrNotFound.WithMessage("item is not in the cart")
	}
	if qty == 0 {
		return c.RemoveItem(itemID)
	}
	li.Quantity = qty
	li.MarkUpdated()
	c.Touch()
	return nil
}

// RemoveItem drops a line from the cart.
func (c *Cart) RemoveItem(itemID uuid.UUID) error {
	for i, li := range c.Items {
		if li.ItemID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Touch()
			return nil
		}
	}
	return shared.ErrNotFound.WithMessage("item is not in the cart")
}

// ApplyCoupon attaches a coupon code. Eligibility is checked by the
// application layer against the current subtotal before calling this.
func (c *Cart) ApplyCoupon(code string) error {
	if c.IsEmpty() {
		return shared.ErrCartEmpty
	}
	c.CouponCode = code
	c.Touch()
	return nil
}

// RemoveCoupon detaches any applied coupon.
func (c *Cart) RemoveCoupon() {
	c.CouponCode = ""
	c.Touch()
}

// Clear empties the cart and drops the coupon. Called after checkout.
func (c *Cart) Clear() {
	c.Items = nil
	c.CouponCode = ""
	c.Touch()
}

// Subtotal sums line totals before any discount.
func (c *Cart) Subtotal() valueobject.Money {
	total := valueobject.ZeroMoney(valueobject.DefaultCurrency)
	for _, li := range c.Items {
		sum, err := total.Add(li.LineTotal())
		if err != nil {
			continue
		}
		total = sum
	}
	return total
}

// MergeFrom absorbs another cart's lines, summing quantities for items
// present in both. The source cart's coupon wins only when this cart
// has none. The source should be deleted by the caller afterwards.
func (c *Cart) MergeFrom(other *Cart) error {
	for _, li := range other.Items {
		snap := ItemSnapshot{
			ItemID:    li.ItemID,
			Title:     li.Title,
			Artist:    li.Artist,
			Format:    li.Format,
			UnitPrice: li.UnitPrice,
		}
		if err := c.AddItem(snap, li.Quantity); err != nil {
			return err
		}
	}
	if c.CouponCode == "" && other.CouponCode != "" {
		c.CouponCode = other.CouponCode
	}
	c.Touch()
	return nil
}

// ReOwn transfers a guest cart to an authenticated user.
func (c *Cart) ReOwn(userID uuid.UUID) error {
	owner, err := UserOwner(userID)
	if err != nil {
		return err
	}
	c.Owner = owner
	c.Touch()
	return nil
}

func (c *Cart) TableName() string {
	return "carts"
}
