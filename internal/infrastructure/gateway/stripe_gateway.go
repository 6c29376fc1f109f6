package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/payment"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
	"github.com/recordshop/backend/internal/infrastructure/config"
)

// StripeGateway implements the payment gateway port against the Stripe
// Payment Intents API. Every API call runs under the configured
// timeout; checkout must never hang on a stalled gateway connection.
type StripeGateway struct {
	webhookSecret string
	timeout       time.Duration
	logger        *zap.Logger
}

// NewStripeGateway creates a Stripe gateway and initializes the Stripe
// client with the configured API key.
func NewStripeGateway(cfg *config.StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe: webhook secret is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	stripe.Key = cfg.SecretKey

	return &StripeGateway{
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
		logger:        logger.Named("stripe"),
	}, nil
}

// CreateIntent registers a payment intent for the given amount. Stripe's
// idempotency layer guarantees that retried calls with the same key
// return the original intent instead of charging twice.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount valueobject.Money, orderNumber, idempotencyKey string) (*payment.Intent, error) {
	minor, err := amount.MinorUnits()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(strings.ToLower(amount.Currency())),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_number": orderNumber,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		g.logger.Error("failed to create payment intent",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return nil, mapStripeError(err)
	}

	g.logger.Info("created payment intent",
		zap.String("order_number", orderNumber),
		zap.String("intent_id", pi.ID))

	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Status:       mapIntentStatus(pi.Status),
	}, nil
}

// Refund returns the full amount of a settled intent.
func (g *StripeGateway) Refund(ctx context.Context, intentID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		g.logger.Error("failed to refund payment intent",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return mapStripeError(err)
	}

	g.logger.Info("refunded payment intent",
		zap.String("intent_id", intentID),
		zap.String("refund_id", r.ID))
	return nil
}

// VerifyEvent checks the Stripe-Signature header against the webhook
// secret and normalizes the event onto the payment status lattice.
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (*payment.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe: webhook signature verification failed: %w", err)
	}

	normalized := &payment.Event{
		ID:         event.ID,
		OccurredAt: time.Unix(event.Created, 0),
	}

	switch event.Type {
	case "payment_intent.succeeded":
		pi, err := parsePaymentIntent(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		normalized.IntentID = pi.ID
		normalized.Status = payment.StatusSucceeded

	case "payment_intent.payment_failed":
		pi, err := parsePaymentIntent(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		normalized.IntentID = pi.ID
		normalized.Status = payment.StatusFailed
		if pi.LastPaymentError != nil {
			normalized.FailureCode = string(pi.LastPaymentError.Code)
		}

	case "payment_intent.canceled":
		pi, err := parsePaymentIntent(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		normalized.IntentID = pi.ID
		normalized.Status = payment.StatusCancelled

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("stripe: failed to parse charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			normalized.IntentID = ch.PaymentIntent.ID
		}
		normalized.Status = payment.StatusRefunded

	default:
		// Event types outside the intent lifecycle normalize to a
		// pending report, which the status lattice ignores.
		g.logger.Debug("unhandled webhook event type", zap.String("type", string(event.Type)))
		pi, err := parsePaymentIntent(event.Data.Raw)
		if err == nil {
			normalized.IntentID = pi.ID
		}
		normalized.Status = payment.StatusPending
	}

	return normalized, nil
}

func parsePaymentIntent(raw json.RawMessage) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: failed to parse payment intent: %w", err)
	}
	return &pi, nil
}

func mapIntentStatus(status stripe.PaymentIntentStatus) payment.Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return payment.StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return payment.StatusCancelled
	default:
		// requires_payment_method, requires_confirmation,
		// requires_action, processing
		return payment.StatusPending
	}
}

// mapStripeError converts Stripe API failures into gateway errors,
// marking server-side and rate-limit failures as retriable.
func mapStripeError(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		retriable := sErr.HTTPStatusCode >= 500 ||
			sErr.HTTPStatusCode == 429 ||
			sErr.Type == stripe.ErrorTypeAPI
		return &payment.GatewayError{
			Code:      string(sErr.Code),
			Message:   sErr.Msg,
			Retriable: retriable,
		}
	}
	// Anything that never reached Stripe (DNS, timeouts) is worth retrying.
	return &payment.GatewayError{
		Code:      "network_error",
		Message:   err.Error(),
		Retriable: true,
	}
}
