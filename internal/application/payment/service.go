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

// Service creates payment intents for orders and requests refunds.
// Status changes always come back through the webhook reconciler, so
// these methods only talk to the gateway and record what was asked.
type Service struct {
	paymentRepo payment.Repository
	orderRepo   order.Repository
	gateway     payment.Gateway
	logger      *zap.Logger
}

// NewService creates a payment service.
func NewService(
	paymentRepo payment.Repository,
	orderRepo order.Repository,
	gateway payment.Gateway,
	logger *zap.Logger,
) *Service {
	return &Service{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// CreateIntent registers a gateway intent to collect an order's total.
// Calling it again for the same order returns the existing intent, so
// a shopper refreshing the payment page never double-charges. Once the
// payment has settled the call fails with ErrAlreadyPaid.
func (s *Service) CreateIntent(ctx context.Context, orderID uuid.UUID) (*payment.Intent, *payment.Payment, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if o.PaymentIntentID != "" {
		existing, err := s.paymentRepo.FindByIntentID(ctx, o.PaymentIntentID)
		if err != nil {
			return nil, nil, err
		}
		if existing.Status == payment.StatusSucceeded {
			return nil, nil, shared.ErrAlreadyPaid
		}
		if o.Status != order.StatusPending {
			return nil, nil, shared.ErrInvalidState.WithMessage("order is no longer awaiting payment")
		}
		return &payment.Intent{
			ID:     existing.IntentID,
			Amount: existing.Amount,
			Status: existing.Status,
		}, existing, nil
	}
	if o.Status != order.StatusPending {
		return nil, nil, shared.ErrInvalidState.WithMessage("order is no longer awaiting payment")
	}

	// The order number doubles as the gateway idempotency key, so a
	// retried request after a network failure lands on the same intent.
	intent, err := s.gateway.CreateIntent(ctx, o.Total, o.OrderNumber, o.OrderNumber)
	if err != nil {
		return nil, nil, err
	}

	p, err := payment.NewPayment(o.GetID(), intent.ID, o.Total)
	if err != nil {
		return nil, nil, err
	}
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, nil, err
	}
	if err := o.AttachPaymentIntent(intent.ID); err != nil {
		return nil, nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, nil, err
	}

	s.logger.Info("payment intent created",
		zap.String("order_number", o.OrderNumber),
		zap.String("intent_id", intent.ID))
	return intent, p, nil
}

// Refund asks the gateway to return funds for an order's settled
// payment. The order and payment flip to REFUNDED only when the
// gateway's refund notification arrives.
func (s *Service) Refund(ctx context.Context, orderID uuid.UUID) error {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.PaymentIntentID == "" {
		return shared.ErrInvalidState.WithMessage("order has no payment to refund")
	}
	p, err := s.paymentRepo.FindByIntentID(ctx, o.PaymentIntentID)
	if err != nil {
		return err
	}
	if p.Status != payment.StatusSucceeded {
		return shared.ErrInvalidState.WithMessage("only settled payments can be refunded")
	}
	if err := s.gateway.Refund(ctx, p.IntentID); err != nil {
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) && gwErr.Retriable {
			s.logger.Warn("refund request failed, retriable",
				zap.String("intent_id", p.IntentID), zap.Error(err))
		}
		return err
	}
	s.logger.Info("refund requested",
		zap.String("order_number", o.OrderNumber),
		zap.String("intent_id", p.IntentID))
	return nil
}

// GetByOrder returns the payments recorded for an order.
func (s *Service) GetByOrder(ctx context.Context, orderID uuid.UUID) ([]*payment.Payment, error) {
	return s.paymentRepo.FindByOrderID(ctx, orderID)
}
