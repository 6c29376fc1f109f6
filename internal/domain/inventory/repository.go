package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
)

// Repository persists stock records. SaveWithLock implementations must
// compare the aggregate version and report a concurrency conflict when
// another writer got there first.
type Repository interface {
	Save(ctx context.Context, record *Record) error
	SaveWithLock(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)
	FindByItemID(ctx context.Context, itemID uuid.UUID) (*Record, error)
	FindByItemIDs(ctx context.Context, itemIDs []uuid.UUID) ([]*Record, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Record], error)
	ListLowStock(ctx context.Context) ([]*Record, error)
}
