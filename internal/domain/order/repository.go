package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
)

// Repository persists orders with their line items loaded. SaveWithLock
// uses the aggregate version to serialize competing status writes.
type Repository interface {
	Save(ctx context.Context, order *Order) error
	SaveWithLock(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Order], error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Order], error)
}
