package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/recordshop/backend/internal/application/checkout"
	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/promotion"
)

// GormTransactionScope implements checkout.TransactionScope over a GORM
// transaction. Every repository handed to the callback shares the
// transaction, so checkout's writes commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a transaction scope bound to db.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a database transaction.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos checkout.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) CartRepo() cart.Repository {
	return NewGormCartRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderRepo() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) InventoryRepo() inventory.Repository {
	return NewGormInventoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) CouponRepo() promotion.Repository {
	return NewGormCouponRepository(r.tx)
}

var (
	_ checkout.TransactionScope          = (*GormTransactionScope)(nil)
	_ checkout.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
