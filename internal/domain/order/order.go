package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Status is the fulfilment state of an order. Transitions are one-way;
// CanTransitionTo is the single source of truth for what is allowed.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransitionTo reports whether moving to target is a legal step.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// IsCancellable reports whether the shopper may still cancel.
func (s Status) IsCancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// LineItem is a frozen snapshot of a cart line at checkout. Catalog
// price changes after this point never affect the order.
type LineItem struct {
	shared.BaseEntity
	OrderID   uuid.UUID         `gorm:"type:uuid;index;not null" json:"order_id"`
	ItemID    uuid.UUID         `gorm:"type:uuid;not null" json:"item_id"`
	SKU       string            `gorm:"size:64;not null" json:"sku"`
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
	return "order_items"
}

// Order is the immutable record of a purchase. Amounts and addresses
// are copies taken at checkout. StockDeducted guards the one-time move
// of reserved stock out of the warehouse, keeping repeated payment
// notifications from deducting twice.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string              `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	UserID          uuid.UUID           `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID       string              `gorm:"size:128;index" json:"session_id,omitempty"`
	Status          Status              `gorm:"size:16;not null;index" json:"status"`
	Items           []*LineItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal        valueobject.Money   `gorm:"type:json" json:"subtotal"`
	Discount        valueobject.Money   `gorm:"type:json" json:"discount"`
	ShippingFee     valueobject.Money   `gorm:"type:json" json:"shipping_fee"`
	Tax             valueobject.Money   `gorm:"type:json" json:"tax"`
	Total           valueobject.Money   `gorm:"type:json" json:"total"`
	CouponCode      string              `gorm:"size:64" json:"coupon_code,omitempty"`
	ShippingAddress valueobject.Address `gorm:"type:json" json:"shipping_address"`
	BillingAddress  valueobject.Address `gorm:"type:json" json:"billing_address"`
	PaymentIntentID string              `gorm:"size:128;index" json:"payment_intent_id,omitempty"`
	StockDeducted   bool                `gorm:"not null;default:false" json:"stock_deducted"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
}

// New assembles an order in PENDING from checkout inputs. The caller
// has already priced the quote and reserved stock.
func New(orderNumber string, items []*LineItem, quote Quote, shipping valueobject.Address) (*Order, error) {
	if len(items) == 0 {
		return nil, shared.ErrCartEmpty
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		Status:            StatusPending,
		Subtotal:          quote.Subtotal,
		Discount:          quote.Discount,
		ShippingFee:       quote.ShippingFee,
		Tax:               quote.Tax,
		Total:             quote.Total,
		CouponCode:        quote.CouponCode,
		ShippingAddress:   shipping,
		BillingAddress:    shipping,
	}
	for _, li := range items {
		li.OrderID = o.GetID()
		o.Items = append(o.Items, li)
	}
	o.AddDomainEvent(NewCreatedEvent(o.GetID(), o.OrderNumber, o.Total))
	return o, nil
}

// TransitionTo advances the status, rejecting illegal moves.
func (o *Order) TransitionTo(target Status) error {
	if o.Status == target {
		return nil
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState.WithMessage(
			fmt.Sprintf("cannot move order from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	now := time.Now()
	switch target {
	case StatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}
	o.MarkUpdated()
	o.AddDomainEvent(NewStatusChangedEvent(o.GetID(), o.OrderNumber, from, target))
	return nil
}

// SetBillingAddress replaces the billing copy taken at creation.
func (o *Order) SetBillingAddress(billing valueobject.Address) error {
	if err := billing.Validate(); err != nil {
		return err
	}
	o.BillingAddress = billing
	return nil
}

// Cancel moves the order to CANCELLED, recording when.
func (o *Order) Cancel() error {
	if !o.Status.IsCancellable() {
		return shared.ErrOrderNotCancellable.WithMessage(
			fmt.Sprintf("order in status %s cannot be cancelled", o.Status))
	}
	if err := o.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	return nil
}

// MarkStockDeducted records that reserved units left the warehouse.
// Returns false if the deduction already happened, so callers can make
// the warehouse write exactly once no matter how often payment
// notifications arrive.
func (o *Order) MarkStockDeducted() bool {
	if o.StockDeducted {
		return false
	}
	o.StockDeducted = true
	o.MarkUpdated()
	return true
}

// AttachPaymentIntent links the gateway intent created for this order.
func (o *Order) AttachPaymentIntent(intentID string) error {
	if intentID == "" {
		return shared.ErrInvalidInput.WithMessage("payment intent id is required")
	}
	if o.PaymentIntentID != "" && o.PaymentIntentID != intentID {
		return shared.ErrInvalidState.WithMessage("order already has a different payment intent")
	}
	o.PaymentIntentID = intentID
	o.MarkUpdated()
	return nil
}

func (o *Order) TableName() string {
	return "orders"
}
