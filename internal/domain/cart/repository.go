package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists carts with their line items loaded.
type Repository interface {
	Save(ctx context.Context, cart *Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	FindByOwner(ctx context.Context, owner Owner) (*Cart, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes carts whose TTL passed before the cutoff
	// and returns how many were purged.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
