package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/payment"
	"github.com/recordshop/backend/internal/domain/shared"
)

// OrderWorkflow is the slice of the order service the reconciler needs
// to react to settled payments.
type OrderWorkflow interface {
	MarkPaid(ctx context.Context, id uuid.UUID) (*order.Order, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// WebhookService reconciles gateway notifications with local payment
// and order state. Notifications are verified, deduplicated by event
// ID, and applied through the status lattice, so duplicates, replays
// and out-of-order delivery all converge on the same final state.
type WebhookService struct {
	paymentRepo      payment.Repository
	gateway          payment.Gateway
	orders           OrderWorkflow
	idempotencyStore shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	logger           *zap.Logger
}

// NewWebhookService creates a webhook reconciler.
func NewWebhookService(
	paymentRepo payment.Repository,
	gateway payment.Gateway,
	orders OrderWorkflow,
	idempotencyStore shared.IdempotencyStore,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		paymentRepo:      paymentRepo,
		gateway:          gateway,
		orders:           orders,
		idempotencyStore: idempotencyStore,
		idempotencyCfg:   shared.DefaultIdempotencyConfig(),
		logger:           logger,
	}
}

// ProcessEvent handles one raw webhook delivery. A nil return tells the
// HTTP layer to acknowledge; an error makes the gateway redeliver.
func (s *WebhookService) ProcessEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyEvent(payload, signature)
	if err != nil {
		s.logger.Warn("rejected webhook with bad signature", zap.Error(err))
		return shared.ErrSignatureInvalid
	}

	first, err := s.idempotencyStore.MarkProcessed(ctx, event.ID, s.idempotencyCfg.TTL)
	if err != nil {
		return err
	}
	if !first {
		s.logger.Debug("skipping duplicate webhook event", zap.String("event_id", event.ID))
		return nil
	}

	if err := s.applyEvent(ctx, event); err != nil {
		// Release the dedup mark so the gateway's retry can run the
		// event again once the transient failure clears.
		if unmarkErr := s.idempotencyStore.Unmark(ctx, event.ID); unmarkErr != nil {
			s.logger.Error("failed to unmark webhook event",
				zap.String("event_id", event.ID), zap.Error(unmarkErr))
		}
		return err
	}
	return nil
}

func (s *WebhookService) applyEvent(ctx context.Context, event *payment.Event) error {
	p, err := s.paymentRepo.FindByIntentID(ctx, event.IntentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// An intent we never created, likely another environment
			// sharing the gateway account. Acknowledge and move on.
			s.logger.Warn("webhook for unknown payment intent",
				zap.String("intent_id", event.IntentID),
				zap.String("event_id", event.ID))
			return nil
		}
		return err
	}

	changed, err := p.Apply(event.Status, event.FailureCode, event.OccurredAt)
	if err != nil {
		return err
	}
	if changed {
		if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
			return err
		}
	} else if event.Status != p.Status {
		s.logger.Debug("webhook event is stale, no state change",
			zap.String("intent_id", event.IntentID),
			zap.String("reported", string(event.Status)),
			zap.String("current", string(p.Status)))
		return nil
	}

	// Side effects run whenever the event's status is the payment's
	// current one, so a redelivery after a failed order update still
	// lands. The order operations themselves are idempotent.
	switch event.Status {
	case payment.StatusSucceeded:
		if _, err := s.orders.MarkPaid(ctx, p.OrderID); err != nil {
			return err
		}
	case payment.StatusRefunded:
		if _, err := s.orders.MarkRefunded(ctx, p.OrderID); err != nil {
			return err
		}
	case payment.StatusFailed, payment.StatusCancelled:
		// The order stays PENDING so the shopper can retry payment.
		s.logger.Info("payment did not settle",
			zap.String("intent_id", p.IntentID),
			zap.String("status", string(event.Status)),
			zap.String("failure_code", event.FailureCode))
	}

	s.logger.Info("processed payment webhook",
		zap.String("event_id", event.ID),
		zap.String("intent_id", p.IntentID),
		zap.String("status", string(p.Status)))
	return nil
}
