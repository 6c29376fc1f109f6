package inventory

import (
	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
)

const (
	EventLowStock       = "inventory.low_stock"
	EventStockDeducted  = "inventory.stock_deducted"
	EventStockReceived  = "inventory.stock_received"
	AggregateTypeRecord = "inventory.record"
)

// LowStockEvent fires when a reservation drops available stock to or
// below the record's threshold.
type LowStockEvent struct {
	shared.BaseDomainEvent
	ItemID    uuid.UUID `json:"item_id"`
	Available int       `json:"available"`
	Threshold int       `json:"threshold"`
}

func NewLowStockEvent(recordID, itemID uuid.UUID, available, threshold int) *LowStockEvent {
	return &LowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventLowStock, AggregateTypeRecord, recordID),
		ItemID:          itemID,
		Available:       available,
		Threshold:       threshold,
	}
}

// StockDeductedEvent fires when reserved units leave the warehouse count.
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
	OrderID  uuid.UUID `json:"order_id"`
}

func NewStockDeductedEvent(recordID, itemID, orderID uuid.UUID, qty int) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStockDeducted, AggregateTypeRecord, recordID),
		ItemID:          itemID,
		Quantity:        qty,
		OrderID:         orderID,
	}
}
