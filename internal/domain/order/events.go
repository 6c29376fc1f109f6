package order

import (
	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

const (
	EventCreated       = "order.created"
	EventStatusChanged = "order.status_changed"
	AggregateTypeOrder = "order"
)

// CreatedEvent fires when checkout produces a new order.
type CreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string            `json:"order_number"`
	Total       valueobject.Money `json:"total"`
}

func NewCreatedEvent(orderID uuid.UUID, orderNumber string, total valueobject.Money) *CreatedEvent {
	return &CreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCreated, AggregateTypeOrder, orderID),
		OrderNumber:     orderNumber,
		Total:           total,
	}
}

// StatusChangedEvent fires on every legal status transition.
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	From        Status `json:"from"`
	To          Status `json:"to"`
}

func NewStatusChangedEvent(orderID uuid.UUID, orderNumber string, from, to Status) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStatusChanged, AggregateTypeOrder, orderID),
		OrderNumber:     orderNumber,
		From:            from,
		To:              to,
	}
}
