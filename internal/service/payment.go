package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/payment"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

// PaymentService moves an order's payment state through the gateways.
// State only changes on a confirmed gateway result or a verified webhook.
type PaymentService struct {
	Orders   *OrderService
	Gateways payment.Registry
}

func (s *PaymentService) gateway(name string) (payment.Gateway, error) {
	g, err := s.Gateways.Provider(name)
	if err != nil {
		return nil, Validation("Invalid payment method")
	}
	return g, nil
}

// Initialize opens a payment with the provider for the order's method, or
// for provider when the customer switches.
func (s *PaymentService) Initialize(ctx context.Context, orderID, actorID uuid.UUID, provider string) (*payment.Intent, error) {
	l := logging.FromContext(ctx).With("svc", "payment.initialize", "order_id", orderID)

	order, err := s.ownedOrder(ctx, orderID, actorID)
	if err != nil {
		return nil, err
	}
	switch {
	case order.PaymentStatus == models.PaymentCompleted:
		return nil, Validation("Order is already paid")
	case order.PaymentStatus == models.PaymentRefunded || order.Status == models.OrderCancelled:
		return nil, Validation("Order is cancelled")
	}

	var gw payment.Gateway
	if provider != "" {
		gw, err = s.gateway(provider)
	} else {
		gw, err = s.Gateways.ForMethod(order.PaymentMethod)
		if err != nil {
			err = Validation("Invalid payment method")
		}
	}
	if err != nil {
		return nil, err
	}

	amount := order.PayableAmount()
	intent, err := gw.CreatePayment(ctx, order.ID.String(), amount)
	if err != nil {
		l.Error("payment_initialize_failed", "provider", gw.Name(), "error", err)
		return nil, Gateway("Payment provider error")
	}

	err = s.Orders.Repo.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_provider":       gw.Name(),
		"payment_transaction_id": intent.Reference,
		"payment_amount":         amount,
	})
	if err != nil {
		return nil, err
	}
	l.Info("payment_initialized", "provider", gw.Name(), "reference", intent.Reference)
	return intent, nil
}

// Confirm asks the provider for the outcome and records a completed payment.
func (s *PaymentService) Confirm(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, *payment.Result, error) {
	l := logging.FromContext(ctx).With("svc", "payment.confirm", "order_id", orderID)

	order, err := s.ownedOrder(ctx, orderID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if order.PaymentDetails.TransactionID == "" || order.PaymentDetails.Provider == "" {
		return nil, nil, Validation("Payment has not been initialized")
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return order, &payment.Result{
			Provider:      order.PaymentDetails.Provider,
			TransactionID: order.PaymentDetails.TransactionID,
			CaptureID:     order.PaymentDetails.CaptureID,
			Status:        payment.StatusCompleted,
		}, nil
	}

	gw, err := s.gateway(order.PaymentDetails.Provider)
	if err != nil {
		return nil, nil, err
	}
	res, err := gw.ConfirmPayment(ctx, order.PaymentDetails.TransactionID)
	if err != nil {
		l.Error("payment_confirm_failed", "provider", gw.Name(), "error", err)
		return nil, nil, Gateway("Payment provider error")
	}
	if res.Status != payment.StatusCompleted {
		l.Warn("payment_not_successful", "provider", gw.Name(), "status", res.Status)
		return nil, nil, Validation("Payment not successful")
	}

	updated, err := s.apply(ctx, order.ID, payment.StatusCompleted, res)
	if err != nil {
		return nil, nil, err
	}
	return updated, res, nil
}

// Refund reverses a completed payment at the provider, then marks the order
// refunded and cancelled in one update.
func (s *PaymentService) Refund(ctx context.Context, orderID uuid.UUID) (*models.Order, *payment.Refund, error) {
	l := logging.FromContext(ctx).With("svc", "payment.refund", "order_id", orderID)

	order, err := s.Orders.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, notFoundOr(err, "Order not found")
	}
	if order.PaymentStatus != models.PaymentCompleted {
		return nil, nil, Validation("Order is not eligible for refund")
	}

	var refund *payment.Refund
	if order.PaymentDetails.Provider != "" {
		gw, err := s.gateway(order.PaymentDetails.Provider)
		if err != nil {
			return nil, nil, err
		}
		refund, err = gw.Refund(ctx, order.PaymentDetails.TransactionID, order.PaymentDetails.CaptureID, order.PayableAmount())
		if err != nil {
			l.Error("payment_refund_failed", "provider", gw.Name(), "error", err)
			return nil, nil, Gateway("Payment provider error")
		}
	}

	updated, err := s.apply(ctx, order.ID, payment.StatusRefunded, nil)
	if err != nil {
		return nil, nil, err
	}
	l.Info("payment_refunded", "provider", order.PaymentDetails.Provider)
	return updated, refund, nil
}

// HandleWebhook verifies and applies a provider notification. Events that
// are unknown, unmatched or out of order are acknowledged without changes.
func (s *PaymentService) HandleWebhook(ctx context.Context, provider string, header http.Header, body []byte) error {
	l := logging.FromContext(ctx).With("svc", "payment.webhook", "provider", provider)

	gw, err := s.gateway(provider)
	if err != nil {
		return err
	}
	evt, err := gw.ParseWebhook(ctx, header, body)
	if err != nil {
		l.Warn("webhook_rejected", "error", err)
		return Validation("Webhook signature verification failed")
	}

	status, ok := evt.PaymentStatus()
	if !ok || evt.Reference == "" {
		l.Info("webhook_ignored", "type", evt.Type)
		return nil
	}

	order, err := s.Orders.Repo.FindOrderByTransaction(ctx, evt.Reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("webhook_unmatched", "type", evt.Type, "reference", evt.Reference)
			return nil
		}
		return err
	}

	if _, err := s.apply(ctx, order.ID, status, nil); err != nil {
		var de *DomainError
		if errors.As(err, &de) && errors.Is(err, ErrValidation) {
			l.Warn("webhook_transition_skipped", "order_id", order.ID, "type", evt.Type, "reason", de.Message)
			return nil
		}
		return err
	}
	l.Info("webhook_applied", "order_id", order.ID, "type", evt.Type, "payment_status", status)
	return nil
}

// apply performs a checked payment transition under the order lock.
func (s *PaymentService) apply(ctx context.Context, orderID uuid.UUID, status string, res *payment.Result) (*models.Order, error) {
	var order *models.Order
	var changed bool
	err := s.Orders.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		order = o
		if o.PaymentStatus == status {
			return nil
		}
		if err := checkPaymentTransition(o.PaymentStatus, status); err != nil {
			return err
		}
		changed = true

		if status == models.PaymentRefunded {
			return refundLocked(ctx, tx, o)
		}

		fields := map[string]any{"payment_status": status}
		if status == models.PaymentCompleted {
			paidAt := time.Now().UTC()
			if res != nil {
				if !res.PaidAt.IsZero() {
					paidAt = res.PaidAt.UTC()
				}
				if res.CaptureID != "" {
					fields["payment_capture_id"] = res.CaptureID
					o.PaymentDetails.CaptureID = res.CaptureID
				}
			}
			fields["payment_payment_date"] = paidAt
			fields["payment_amount"] = o.PayableAmount()
			o.PaymentDetails.PaymentDate = &paidAt
			o.PaymentDetails.Amount = o.PayableAmount()
		}
		if err := tx.UpdateOrder(ctx, o.ID, fields); err != nil {
			return err
		}
		o.PaymentStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.Orders.afterPayment(ctx, order)
		if status == models.PaymentCompleted && order.Status == models.OrderCancelled {
			return s.refundCancelled(ctx, order)
		}
	}
	return order, nil
}

// refundCancelled gives back money captured after the order was cancelled.
// Stock was already returned by the cancellation. When the provider refund
// fails the order stays completed so an admin can retry it.
func (s *PaymentService) refundCancelled(ctx context.Context, o *models.Order) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "payment.refund_cancelled", "order_id", o.ID)
	l.Warn("payment_completed_on_cancelled_order", "provider", o.PaymentDetails.Provider)

	gw, err := s.gateway(o.PaymentDetails.Provider)
	if err == nil {
		_, err = gw.Refund(ctx, o.PaymentDetails.TransactionID, o.PaymentDetails.CaptureID, o.PayableAmount())
	}
	if err != nil {
		l.Error("cancelled_order_refund_failed", "error", err)
		return o, nil
	}
	return s.apply(ctx, o.ID, models.PaymentRefunded, nil)
}

func (s *PaymentService) ownedOrder(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	order, err := s.Orders.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if order.UserID != actorID {
		return nil, Forbidden("Not authorized to access this order")
	}
	return order, nil
}
