package checkout

import (
	"context"

	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/promotion"
)

// TransactionScope runs checkout work inside one database transaction.
// Cart clearing, stock reservation, coupon redemption and order
// creation commit together or not at all.
type TransactionScope interface {
	// Execute runs fn in a transaction, rolling back when fn errors.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories participating in
// a checkout, all bound to the same transaction.
type TransactionalRepositories interface {
	CartRepo() cart.Repository
	OrderRepo() order.Repository
	InventoryRepo() inventory.Repository
	CouponRepo() promotion.Repository
}

// NoOpTransactionScope satisfies TransactionScope without a real
// transaction. Used in tests.
type NoOpTransactionScope struct {
	cartRepo      cart.Repository
	orderRepo     order.Repository
	inventoryRepo inventory.Repository
	couponRepo    promotion.Repository
}

// NewNoOpTransactionScope wires a scope over plain repositories.
func NewNoOpTransactionScope(
	cartRepo cart.Repository,
	orderRepo order.Repository,
	inventoryRepo inventory.Repository,
	couponRepo promotion.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		cartRepo:      cartRepo,
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		couponRepo:    couponRepo,
	}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) CartRepo() cart.Repository           { return s.cartRepo }
func (s *NoOpTransactionScope) OrderRepo() order.Repository         { return s.orderRepo }
func (s *NoOpTransactionScope) InventoryRepo() inventory.Repository { return s.inventoryRepo }
func (s *NoOpTransactionScope) CouponRepo() promotion.Repository    { return s.couponRepo }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
