package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/payment"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
)

const testSignature = "sig-valid"

type memPaymentRepo struct{ payments map[string]*payment.Payment }

func (r *memPaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	r.payments[p.IntentID] = p
	return nil
}

func (r *memPaymentRepo) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	return r.Save(ctx, p)
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.GetID() == id {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPaymentRepo) FindByIntentID(_ context.Context, intentID string) (*payment.Payment, error) {
	p, ok := r.payments[intentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memPaymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
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

func (r *memOrderRepo) ListByUser(_ context.Context, _ uuid.UUID, _ shared.Filter) (*shared.Paginated[*order.Order], error) {
	return nil, nil
}

func (r *memOrderRepo) List(_ context.Context, _ shared.Filter) (*shared.Paginated[*order.Order], error) {
	return nil, nil
}

// fakeGateway mints deterministic intents and verifies events encoded
// as JSON payloads signed with testSignature.
type fakeGateway struct {
	intents     map[string]*payment.Intent // by idempotency key
	refunded    []string
	refundErr   error
	createCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*payment.Intent)}
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount valueobject.Money, _, idempotencyKey string) (*payment.Intent, error) {
	g.createCalls++
	if intent, ok := g.intents[idempotencyKey]; ok {
		return intent, nil
	}
	intent := &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", len(g.intents)+1),
		ClientSecret: "secret",
		Amount:       amount,
		Status:       payment.StatusPending,
	}
	g.intents[idempotencyKey] = intent
	return intent, nil
}

func (g *fakeGateway) Refund(_ context.Context, intentID string) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunded = append(g.refunded, intentID)
	return nil
}

func (g *fakeGateway) VerifyEvent(payload []byte, signature string) (*payment.Event, error) {
	if signature != testSignature {
		return nil, &payment.GatewayError{Code: "bad_signature", Message: "signature mismatch"}
	}
	var event payment.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type memIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{seen: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], nil
}

func (s *memIdempotencyStore) Unmark(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}

func (s *memIdempotencyStore) Close() error { return nil }

// fakeWorkflow records MarkPaid/MarkRefunded calls.
type fakeWorkflow struct {
	paid     []uuid.UUID
	refunded []uuid.UUID
	paidErr  error
}

func (w *fakeWorkflow) MarkPaid(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if w.paidErr != nil {
		return nil, w.paidErr
	}
	w.paid = append(w.paid, id)
	return nil, nil
}

func (w *fakeWorkflow) MarkRefunded(_ context.Context, id uuid.UUID) (*order.Order, error) {
	w.refunded = append(w.refunded, id)
	return nil, nil
}

func usd(amount float64) valueobject.Money {
	return valueobject.NewUSD(decimal.NewFromFloat(amount))
}

func seedOrder(t *testing.T, repo *memOrderRepo) *order.Order {
	t.Helper()
	addr, err := valueobject.NewAddress("Jo Reyes", "12 Vine St", "", "Portland", "OR", "97201", "US")
	require.NoError(t, err)
	quote, err := order.BuildQuote(usd(40), usd(0), usd(4.99), usd(4), "")
	require.NoError(t, err)
	items := []*order.LineItem{{
		BaseEntity: shared.NewBaseEntity(),
		ItemID:     uuid.New(),
		SKU:        "LP-0001",
		Title:      "Kind of Blue",
		UnitPrice:  usd(20),
		Quantity:   2,
	}}
	o, err := order.New(order.GenerateOrderNumber(time.Now()), items, quote, addr)
	require.NoError(t, err)
	o.ClearDomainEvents()
	require.NoError(t, repo.Save(context.Background(), o))
	return o
}

func eventPayload(t *testing.T, event payment.Event) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestCreateIntent(t *testing.T) {
	payments := &memPaymentRepo{payments: make(map[string]*payment.Payment)}
	orders := &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
	gw := newFakeGateway()
	svc := NewService(payments, orders, gw, zap.NewNop())
	o := seedOrder(t, orders)

	intent, p, err := svc.CreateIntent(context.Background(), o.GetID())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.True(t, p.Amount.Equals(o.Total))
	assert.Equal(t, intent.ID, o.PaymentIntentID)

	// A second call returns the same intent without hitting the gateway.
	again, _, err := svc.CreateIntent(context.Background(), o.GetID())
	require.NoError(t, err)
	assert.Equal(t, intent.ID, again.ID)
	assert.Equal(t, 1, gw.createCalls)
}

func TestCreateIntentRequiresPending(t *testing.T) {
	payments := &memPaymentRepo{payments: make(map[string]*payment.Payment)}
	orders := &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
	svc := NewService(payments, orders, newFakeGateway(), zap.NewNop())
	o := seedOrder(t, orders)
	require.NoError(t, o.Cancel())

	_, _, err := svc.CreateIntent(context.Background(), o.GetID())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateIntentAfterSettlement(t *testing.T) {
	ctx := context.Background()
	payments := &memPaymentRepo{payments: make(map[string]*payment.Payment)}
	orders := &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
	gw := newFakeGateway()
	svc := NewService(payments, orders, gw, zap.NewNop())
	o := seedOrder(t, orders)

	_, p, err := svc.CreateIntent(ctx, o.GetID())
	require.NoError(t, err)
	_, err = p.Apply(payment.StatusSucceeded, "", time.Now())
	require.NoError(t, err)

	_, _, err = svc.CreateIntent(ctx, o.GetID())
	assert.ErrorIs(t, err, shared.ErrAlreadyPaid)
	assert.Equal(t, 1, gw.createCalls)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	payments := &memPaymentRepo{payments: make(map[string]*payment.Payment)}
	orders := &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
	gw := newFakeGateway()
	svc := NewService(payments, orders, gw, zap.NewNop())
	o := seedOrder(t, orders)

	_, p, err := svc.CreateIntent(ctx, o.GetID())
	require.NoError(t, err)

	// Not settled yet.
	assert.ErrorIs(t, svc.Refund(ctx, o.GetID()), shared.ErrInvalidState)

	_, err = p.Apply(payment.StatusSucceeded, "", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Refund(ctx, o.GetID()))
	assert.Equal(t, []string{p.IntentID}, gw.refunded)
}

type webhookFixture struct {
	svc      *WebhookService
	payments *memPaymentRepo
	store    *memIdempotencyStore
	workflow *fakeWorkflow
	payment  *payment.Payment
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		payments: &memPaymentRepo{payments: make(map[string]*payment.Payment)},
		store:    newMemIdempotencyStore(),
		workflow: &fakeWorkflow{},
	}
	p, err := payment.NewPayment(uuid.New(), "pi_1", usd(48.99))
	require.NoError(t, err)
	require.NoError(t, f.payments.Save(context.Background(), p))
	f.payment = p
	f.svc = NewWebhookService(f.payments, newFakeGateway(), f.workflow, f.store, zap.NewNop())
	return f
}

func TestProcessEventSuccess(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, payment.Event{
		ID: "evt_1", IntentID: "pi_1", Status: payment.StatusSucceeded, OccurredAt: time.Now(),
	})

	require.NoError(t, f.svc.ProcessEvent(context.Background(), payload, testSignature))
	assert.Equal(t, payment.StatusSucceeded, f.payment.Status)
	assert.Equal(t, []uuid.UUID{f.payment.OrderID}, f.workflow.paid)
}

func TestProcessEventBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, payment.Event{ID: "evt_1", IntentID: "pi_1", Status: payment.StatusSucceeded})

	err := f.svc.ProcessEvent(context.Background(), payload, "sig-wrong")
	assert.ErrorIs(t, err, shared.ErrSignatureInvalid)
	assert.Empty(t, f.workflow.paid)
}

func TestProcessEventDuplicate(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, payment.Event{
		ID: "evt_1", IntentID: "pi_1", Status: payment.StatusSucceeded, OccurredAt: time.Now(),
	})

	require.NoError(t, f.svc.ProcessEvent(context.Background(), payload, testSignature))
	require.NoError(t, f.svc.ProcessEvent(context.Background(), payload, testSignature))
	assert.Len(t, f.workflow.paid, 1)
}

func TestProcessEventUnknownIntent(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, payment.Event{
		ID: "evt_x", IntentID: "pi_unknown", Status: payment.StatusSucceeded, OccurredAt: time.Now(),
	})

	// Acknowledged without side effects.
	require.NoError(t, f.svc.ProcessEvent(context.Background(), payload, testSignature))
	assert.Empty(t, f.workflow.paid)
}

func TestProcessEventOutOfOrder(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	refund := eventPayload(t, payment.Event{
		ID: "evt_refund", IntentID: "pi_1", Status: payment.StatusRefunded, OccurredAt: time.Now(),
	})
	success := eventPayload(t, payment.Event{
		ID: "evt_success", IntentID: "pi_1", Status: payment.StatusSucceeded, OccurredAt: time.Now(),
	})

	// Refund notification overtakes the success one.
	require.NoError(t, f.svc.ProcessEvent(ctx, refund, testSignature))
	require.NoError(t, f.svc.ProcessEvent(ctx, success, testSignature))

	assert.Equal(t, payment.StatusRefunded, f.payment.Status)
	assert.Len(t, f.workflow.refunded, 1)
	// The stale success never reached the order workflow.
	assert.Empty(t, f.workflow.paid)
}

func TestProcessEventFailureKeepsOrderPending(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, payment.Event{
		ID: "evt_fail", IntentID: "pi_1", Status: payment.StatusFailed,
		FailureCode: "card_declined", OccurredAt: time.Now(),
	})

	require.NoError(t, f.svc.ProcessEvent(context.Background(), payload, testSignature))
	assert.Equal(t, payment.StatusFailed, f.payment.Status)
	assert.Equal(t, "card_declined", f.payment.FailureCode)
	assert.Empty(t, f.workflow.paid)
}

func TestProcessEventUnmarksOnFailure(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	f.workflow.paidErr = shared.ErrConcurrencyConflict

	payload := eventPayload(t, payment.Event{
		ID: "evt_1", IntentID: "pi_1", Status: payment.StatusSucceeded, OccurredAt: time.Now(),
	})

	err := f.svc.ProcessEvent(ctx, payload, testSignature)
	require.Error(t, err)

	// The dedup mark was released, so the redelivery succeeds.
	f.workflow.paidErr = nil
	require.NoError(t, f.svc.ProcessEvent(ctx, payload, testSignature))
	assert.Len(t, f.workflow.paid, 1)
}
