package inventory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
)

// Record tracks physical stock for one catalog item. OnHand counts every
// unit in the warehouse; Reserved counts units promised to pending
// orders. The invariant 0 <= Reserved <= OnHand holds after every
// mutation, enforced here rather than by callers.
type Record struct {
	shared.BaseAggregateRoot
	ItemID            uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"item_id"`
	OnHand            int       `gorm:"not null;default:0" json:"on_hand"`
	Reserved          int       `gorm:"not null;default:0" json:"reserved"`
	LowStockThreshold int       `gorm:"not null;default:0" json:"low_stock_threshold"`
}

// NewRecord creates a stock record for an item with an initial quantity.
func NewRecord(itemID uuid.UUID, initial int) (*Record, error) {
	if itemID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("item id is required")
	}
	if initial < 0 {
		return nil, shared.ErrInvalidInput.WithMessage("initial quantity cannot be negative")
	}
	return &Record{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ItemID:            itemID,
		OnHand:            initial,
	}, nil
}

// Available returns the sellable quantity: on hand minus reserved.
func (r *Record) Available() int {
	return r.OnHand - r.Reserved
}

// CanFulfill reports whether qty units could be reserved right now.
func (r *Record) CanFulfill(qty int) bool {
	return qty > 0 && qty <= r.Available()
}

// Reserve promises qty units to a pending order without removing them
// from the warehouse count.
func (r *Record) Reserve(qty int) error {
	if qty <= 0 {
		return shared.ErrInvalidInput.WithMessage("reserve quantity must be positive")
	}
	if qty > r.Available() {
		return shared.ErrInsufficientStock.WithMessage(
			fmt.Sprintf("requested %d, available %d", qty, r.Available()))
	}
	r.Reserved += qty
	r.MarkUpdated()
	if r.Available() <= r.LowStockThreshold && r.LowStockThreshold > 0 {
		r.AddDomainEvent(NewLowStockEvent(r.GetID(), r.ItemID, r.Available(), r.LowStockThreshold))
	}
	return nil
}

// Release returns reserved units to the sellable pool. Used when an
// order is cancelled before its stock was deducted. Releasing more than
// is reserved clamps at zero rather than erroring, so a release can
// never drive the counter negative.
func (r *Record) Release(qty int) error {
	if qty <= 0 {
		return shared.ErrInvalidInput.WithMessage("release quantity must be positive")
	}
	if qty > r.Reserved {
		qty = r.Reserved
	}
	r.Reserved -= qty
	r.MarkUpdated()
	return nil
}

// Deduct removes qty reserved units from the warehouse entirely. Called
// once when an order moves into fulfilment.
func (r *Record) Deduct(qty int) error {
	if qty <= 0 {
		return shared.ErrInvalidInput.WithMessage("deduct quantity must be positive")
	}
	if qty > r.Reserved {
		return shared.ErrInvalidState.WithMessage(
			fmt.Sprintf("cannot deduct %d, only %d reserved", qty, r.Reserved))
	}
	r.OnHand -= qty
	r.Reserved -= qty
	r.MarkUpdated()
	return nil
}

// Receive adds newly arrived stock to the warehouse count.
func (r *Record) Receive(qty int) error {
	if qty <= 0 {
		return shared.ErrInvalidInput.WithMessage("receive quantity must be positive")
	}
	r.OnHand += qty
	r.MarkUpdated()
	return nil
}

// SetLowStockThreshold configures the level at which reservations emit
// a low stock event. Zero disables the alert.
func (r *Record) SetLowStockThreshold(threshold int) error {
	if threshold < 0 {
		return shared.ErrInvalidInput.WithMessage("threshold cannot be negative")
	}
	r.LowStockThreshold = threshold
	r.MarkUpdated()
	return nil
}

// IsLowStock reports whether available stock is at or below the threshold.
func (r *Record) IsLowStock() bool {
	return r.LowStockThreshold > 0 && r.Available() <= r.LowStockThreshold
}

func (r *Record) TableName() string {
	return "inventory_records"
}
