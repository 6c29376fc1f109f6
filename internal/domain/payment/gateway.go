package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

// Intent is a gateway payment intent created for an order.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       valueobject.Money
	Status       Status
}

// Event is a normalized gateway notification. Gateways report their own
// event taxonomy; adapters map it onto the Status lattice here.
type Event struct {
	ID          string
	IntentID    string
	Status      Status
	FailureCode string
	OccurredAt  time.Time
}

// GatewayError wraps a gateway failure. Retriable failures (timeouts,
// rate limits) may be retried; the rest indicate a bad request.
type GatewayError struct {
	Code      string
	Message   string
	Retriable bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
}

// Gateway is the port to the external payment provider.
type Gateway interface {
	// CreateIntent registers an intent to collect amount for an order.
	// The idempotency key makes retried calls return the same intent.
	CreateIntent(ctx context.Context, amount valueobject.Money, orderNumber, idempotencyKey string) (*Intent, error)
	// Refund returns funds for a settled intent.
	Refund(ctx context.Context, intentID string) error
	// VerifyEvent checks a webhook payload's signature and decodes it.
	VerifyEvent(payload []byte, signature string) (*Event, error)
}
