package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Status is the lifecycle state of a payment as reported by the
// gateway. States form a lattice rather than a chain: notifications
// arrive out of order, so a state only applies when it outranks the
// current one. A success can overwrite a stale failure; a failure can
// never overwrite a success.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusRefunded  Status = "REFUNDED"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusFailed:    1,
	StatusCancelled: 1,
	StatusSucceeded: 2,
	StatusRefunded:  3,
}

// Outranks reports whether s should replace current.
func (s Status) Outranks(current Status) bool {
	return statusRank[s] > statusRank[current]
}

// IsSettled reports whether money moved (succeeded or later refunded).
func (s Status) IsSettled() bool {
	return s == StatusSucceeded || s == StatusRefunded
}

// Payment tracks one gateway payment intent for an order. IntentID is
// the external key webhooks arrive with.
type Payment struct {
	shared.BaseAggregateRoot
	OrderID     uuid.UUID         `gorm:"type:uuid;index;not null" json:"order_id"`
	IntentID    string            `gorm:"uniqueIndex;size:128;not null" json:"intent_id"`
	Amount      valueobject.Money `gorm:"type:json" json:"amount"`
	Status      Status            `gorm:"size:16;not null;index" json:"status"`
	FailureCode string            `gorm:"size:64" json:"failure_code,omitempty"`
	SettledAt   *time.Time        `json:"settled_at,omitempty"`
	RefundedAt  *time.Time        `json:"refunded_at,omitempty"`
}

// NewPayment records a freshly created gateway intent for an order.
func NewPayment(orderID uuid.UUID, intentID string, amount valueobject.Money) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("order id is required")
	}
	if intentID == "" {
		return nil, shared.ErrInvalidInput.WithMessage("intent id is required")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidInput.WithMessage("payment amount must be positive")
	}
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		IntentID:          intentID,
		Amount:            amount,
		Status:            StatusPending,
	}, nil
}

// Apply moves the payment to a reported status if it outranks the
// current one. Returns true when state changed; a false return with a
// nil error means the report was stale and safely ignored.
func (p *Payment) Apply(reported Status, failureCode string, at time.Time) (bool, error) {
	if _, known := statusRank[reported]; !known {
		return false, shared.ErrInvalidInput.WithMessage("unknown payment status: " + string(reported))
	}
	if !reported.Outranks(p.Status) {
		return false, nil
	}
	p.Status = reported
	switch reported {
	case StatusSucceeded:
		t := at
		p.SettledAt = &t
		p.FailureCode = ""
	case StatusRefunded:
		t := at
		p.RefundedAt = &t
	case StatusFailed:
		p.FailureCode = failureCode
	}
	p.MarkUpdated()
	return true, nil
}

func (p *Payment) TableName() string {
	return "payments"
}

// Repository persists payments keyed by gateway intent.
type Repository interface {
	Save(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)
}
