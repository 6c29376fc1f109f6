package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/domain/catalog"
	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/promotion"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

type memCartRepo struct{ carts map[uuid.UUID]*cart.Cart }

func (r *memCartRepo) Save(_ context.Context, c *cart.Cart) error {
	r.carts[c.GetID()] = c
	return nil
}

func (r *memCartRepo) FindByID(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	c, ok := r.carts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memCartRepo) FindByOwner(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	for _, c := range r.carts {
		if c.Owner.Equals(owner) {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCartRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.carts, id)
	return nil
}

func (r *memCartRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type memOrderRepo struct{ orders map[uuid.UUID]*order.Order }

func (r *memOrderRepo) Save(_ context.Context, o *order.Order) error {
	r.orders[o.GetID()] = o
	return nil
}

func (r *memOrderRepo) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.Save(ctx, o)
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) FindByNumber(_ context.Context, number string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.OrderNumber == number {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindByPaymentIntent(_ context.Context, intentID string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.PaymentIntentID == intentID {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	var out []*order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize)
	return &p, nil
}

func (r *memOrderRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	var out []*order.Order
	for _, o := range r.orders {
		out = append(out, o)
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize)
	return &p, nil
}

type memInventoryRepo struct {
	records map[uuid.UUID]*inventory.Record
}

func (r *memInventoryRepo) Save(_ context.Context, rec *inventory.Record) error {
	r.records[rec.ItemID] = rec
	return nil
}

func (r *memInventoryRepo) SaveWithLock(ctx context.Context, rec *inventory.Record) error {
	return r.Save(ctx, rec)
}

func (r *memInventoryRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Record, error) {
	for _, rec := range r.records {
		if rec.GetID() == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInventoryRepo) FindByItemID(_ context.Context, itemID uuid.UUID) (*inventory.Record, error) {
	rec, ok := r.records[itemID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *memInventoryRepo) FindByItemIDs(_ context.Context, ids []uuid.UUID) ([]*inventory.Record, error) {
	var out []*inventory.Record
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memInventoryRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*inventory.Record], error) {
	var out []*inventory.Record
	for _, rec := range r.records {
		out = append(out, rec)
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize)
	return &p, nil
}

func (r *memInventoryRepo) ListLowStock(_ context.Context) ([]*inventory.Record, error) {
	return nil, nil
}

type memCouponRepo struct{ coupons map[string]*promotion.Coupon }

func (r *memCouponRepo) Save(_ context.Context, c *promotion.Coupon) error {
	r.coupons[c.Code] = c
	return nil
}

func (r *memCouponRepo) SaveWithLock(ctx context.Context, c *promotion.Coupon) error {
	return r.Save(ctx, c)
}

func (r *memCouponRepo) FindByID(_ context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	for _, c := range r.coupons {
		if c.GetID() == id {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCouponRepo) FindByCode(_ context.Context, code string) (*promotion.Coupon, error) {
	c, ok := r.coupons[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memCouponRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*promotion.Coupon], error) {
	return nil, nil
}

type memCatalogRepo struct{ items map[uuid.UUID]*catalog.Item }

func (r *memCatalogRepo) Save(_ context.Context, item *catalog.Item) error {
	r.items[item.GetID()] = item
	return nil
}

func (r *memCatalogRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

func (r *memCatalogRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*catalog.Item, error) {
	var out []*catalog.Item
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) FindBySKU(_ context.Context, sku string) (*catalog.Item, error) {
	return nil, shared.ErrNotFound
}

func (r *memCatalogRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*catalog.Item], error) {
	return nil, nil
}

func usd(amount float64) valueobject.Money {
	return valueobject.NewUSD(decimal.NewFromFloat(amount))
}

type fixture struct {
	svc       *Service
	carts     *memCartRepo
	orders    *memOrderRepo
	inventory *memInventoryRepo
	coupons   *memCouponRepo
	catalog   *memCatalogRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		carts:     &memCartRepo{carts: make(map[uuid.UUID]*cart.Cart)},
		orders:    &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)},
		inventory: &memInventoryRepo{records: make(map[uuid.UUID]*inventory.Record)},
		coupons:   &memCouponRepo{coupons: make(map[string]*promotion.Coupon)},
		catalog:   &memCatalogRepo{items: make(map[uuid.UUID]*catalog.Item)},
	}
	scope := NewNoOpTransactionScope(f.carts, f.orders, f.inventory, f.coupons)
	f.svc = NewService(
		scope,
		f.catalog,
		order.FlatRateShipping{Fee: usd(4.99), FreeThreshold: usd(50)},
		order.FlatRateTax{Percent: decimal.NewFromInt(10)},
		zap.NewNop(),
	)
	return f
}

func (f *fixture) seedItem(t *testing.T, title string, price float64, stock int) *catalog.Item {
	t.Helper()
	ctx := context.Background()
	item, err := catalog.NewItem("LP-"+uuid.NewString()[:8], title, "Various", usd(price))
	require.NoError(t, err)
	require.NoError(t, f.catalog.Save(ctx, item))
	rec, err := inventory.NewRecord(item.GetID(), stock)
	require.NoError(t, err)
	require.NoError(t, f.inventory.Save(ctx, rec))
	return item
}

func (f *fixture) seedCart(t *testing.T, lines map[*catalog.Item]int) (*cart.Cart, cart.Owner) {
	t.Helper()
	owner, err := cart.SessionOwner("sess-" + uuid.NewString())
	require.NoError(t, err)
	c, err := cart.NewCart(owner)
	require.NoError(t, err)
	for item, qty := range lines {
		snap := cart.ItemSnapshot{
			ItemID:    item.GetID(),
			Title:     item.Title,
			Artist:    item.Artist,
			Format:    item.Format,
			UnitPrice: item.EffectivePrice(),
		}
		require.NoError(t, c.AddItem(snap, qty))
	}
	require.NoError(t, f.carts.Save(context.Background(), c))
	return c, owner
}

func testAddress(t *testing.T) valueobject.Address {
	t.Helper()
	addr, err := valueobject.NewAddress("Jo Reyes", "12 Vine St", "", "Portland", "OR", "97201", "US")
	require.NoError(t, err)
	return addr
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Kind of Blue", 20, 10)
	c, owner := f.seedCart(t, map[*catalog.Item]int{item: 2})

	o, err := f.svc.CreateOrder(ctx, Request{Owner: owner, ShippingAddress: testAddress(t)})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z2-9]{6}$`, o.OrderNumber)
	assert.True(t, o.Subtotal.Equals(usd(40)))
	assert.True(t, o.ShippingFee.Equals(usd(4.99)))
	assert.True(t, o.Tax.Equals(usd(4)))
	assert.True(t, o.Total.Equals(usd(48.99)))
	require.Len(t, o.Items, 1)
	assert.Equal(t, item.SKU, o.Items[0].SKU)
	assert.Equal(t, item.Artist, o.Items[0].Artist)
	assert.Equal(t, item.Format, o.Items[0].Format)
	assert.Equal(t, o.ShippingAddress, o.BillingAddress)

	// Stock is reserved, not yet deducted.
	rec, err := f.inventory.FindByItemID(ctx, item.GetID())
	require.NoError(t, err)
	assert.Equal(t, 10, rec.OnHand)
	assert.Equal(t, 2, rec.Reserved)

	// The cart is emptied.
	saved, err := f.carts.FindByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.True(t, saved.IsEmpty())
}

func TestCreateOrderChargesCurrentPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Somethin' Else", 20, 10)
	_, owner := f.seedCart(t, map[*catalog.Item]int{item: 2})

	// The catalog is re-priced after the shopper added the item; the
	// stale snapshot in the cart must not be what gets charged.
	require.NoError(t, item.SetSalePrice(usd(25)))

	o, err := f.svc.CreateOrder(ctx, Request{Owner: owner, ShippingAddress: testAddress(t)})
	require.NoError(t, err)

	assert.True(t, o.Items[0].UnitPrice.Equals(usd(25)))
	assert.True(t, o.Subtotal.Equals(usd(50)))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, owner := f.seedCart(t, nil)

	_, err := f.svc.CreateOrder(context.Background(), Request{Owner: owner, ShippingAddress: testAddress(t)})
	assert.ErrorIs(t, err, shared.ErrCartEmpty)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Blue Train", 20, 1)
	_, owner := f.seedCart(t, map[*catalog.Item]int{item: 3})

	_, err := f.svc.CreateOrder(ctx, Request{Owner: owner, ShippingAddress: testAddress(t)})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrderWithCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "A Love Supreme", 30, 10)
	c, owner := f.seedCart(t, map[*catalog.Item]int{item: 2})

	coupon, err := promotion.NewCoupon("SAVE10", promotion.DiscountPercentage, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, f.coupons.Save(ctx, coupon))
	require.NoError(t, c.ApplyCoupon("SAVE10"))
	require.NoError(t, f.carts.Save(ctx, c))

	o, err := f.svc.CreateOrder(ctx, Request{Owner: owner, ShippingAddress: testAddress(t)})
	require.NoError(t, err)

	// 60 - 6 discount, free shipping over 50, 10% tax on 54.
	assert.True(t, o.Discount.Equals(usd(6)))
	assert.True(t, o.ShippingFee.IsZero())
	assert.True(t, o.Tax.Equals(usd(5.40)))
	assert.True(t, o.Total.Equals(usd(59.40)))
	assert.Equal(t, "SAVE10", o.CouponCode)

	// Redemption burned one use.
	saved, err := f.coupons.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.UsageCount)
}

func TestCreateOrderStaleCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Giant Steps", 25, 10)
	c, owner := f.seedCart(t, map[*catalog.Item]int{item: 1})

	coupon, err := promotion.NewCoupon("GONE", promotion.DiscountFixed, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.NoError(t, f.coupons.Save(ctx, coupon))
	require.NoError(t, c.ApplyCoupon("GONE"))
	require.NoError(t, f.carts.Save(ctx, c))

	// The coupon expires between apply and checkout.
	coupon.SetExpiry(time.Now().Add(-time.Minute))

	_, err = f.svc.CreateOrder(ctx, Request{Owner: owner, ShippingAddress: testAddress(t)})
	assert.ErrorIs(t, err, promotion.ErrCouponExpired)
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrderInvalidAddress(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Misterioso", 18, 5)
	_, owner := f.seedCart(t, map[*catalog.Item]int{item: 1})

	_, err := f.svc.CreateOrder(context.Background(), Request{Owner: owner})
	assert.Error(t, err)
}
