package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/shared"
)

type memRepo struct {
	records map[uuid.UUID]*inventory.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[uuid.UUID]*inventory.Record)}
}

func (r *memRepo) Save(_ context.Context, rec *inventory.Record) error {
	r.records[rec.ItemID] = rec
	return nil
}

func (r *memRepo) SaveWithLock(ctx context.Context, rec *inventory.Record) error {
	return r.Save(ctx, rec)
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Record, error) {
	for _, rec := range r.records {
		if rec.GetID() == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) FindByItemID(_ context.Context, itemID uuid.UUID) (*inventory.Record, error) {
	rec, ok := r.records[itemID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) FindByItemIDs(_ context.Context, itemIDs []uuid.UUID) ([]*inventory.Record, error) {
	var out []*inventory.Record
	for _, id := range itemIDs {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*inventory.Record], error) {
	var out []*inventory.Record
	for _, rec := range r.records {
		out = append(out, rec)
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize)
	return &p, nil
}

func (r *memRepo) ListLowStock(_ context.Context) ([]*inventory.Record, error) {
	var out []*inventory.Record
	for _, rec := range r.records {
		if rec.IsLowStock() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestReceiveStockCreatesRecord(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, zap.NewNop())
	itemID := uuid.New()

	rec, err := svc.ReceiveStock(context.Background(), itemID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, rec.OnHand)

	rec, err = svc.ReceiveStock(context.Background(), itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 25, rec.OnHand)
}

func TestReceiveStockRejectsNonPositive(t *testing.T) {
	svc := NewService(newMemRepo(), zap.NewNop())
	_, err := svc.ReceiveStock(context.Background(), uuid.New(), 0)
	assert.Error(t, err)
}

func TestSetLowStockThreshold(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, zap.NewNop())
	itemID := uuid.New()

	_, err := svc.SetLowStockThreshold(context.Background(), itemID, 3)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.ReceiveStock(context.Background(), itemID, 10)
	require.NoError(t, err)

	rec, err := svc.SetLowStockThreshold(context.Background(), itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.LowStockThreshold)
}

func TestListLowStock(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	lowID, okID := uuid.New(), uuid.New()
	_, err := svc.ReceiveStock(ctx, lowID, 2)
	require.NoError(t, err)
	_, err = svc.SetLowStockThreshold(ctx, lowID, 5)
	require.NoError(t, err)

	_, err = svc.ReceiveStock(ctx, okID, 50)
	require.NoError(t, err)
	_, err = svc.SetLowStockThreshold(ctx, okID, 5)
	require.NoError(t, err)

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, lowID, low[0].ItemID)
}
