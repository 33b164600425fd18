package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/payment"
	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

const maxWebhookBody = 1 << 20

type PaymentHTTP struct {
	Svc *service.PaymentService
}

type paymentResult struct {
	Order   *models.Order   `json:"order"`
	Payment *payment.Result `json:"payment,omitempty"`
	Refund  *payment.Refund `json:"refund,omitempty"`
}

func (h *PaymentHTTP) Initialize(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.initialize")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "payment_initialize_failed", err)
	}
	orderID, err := pathID(c, "orderId")
	if err != nil {
		return fail(l, "payment_initialize_failed", err)
	}
	var req transport.InitializePaymentRequest
	if c.Request().ContentLength > 0 {
		if err := bind(c, &req); err != nil {
			return fail(l, "payment_initialize_failed", err)
		}
	}

	intent, err := h.Svc.Initialize(ctx, orderID, userID, req.PaymentMethod)
	if err != nil {
		return fail(l, "payment_initialize_failed", err)
	}

	l.Info("payment_initialize_success", "order_id", orderID, "provider", intent.Provider)
	return ok(c, http.StatusOK, intent)
}

func (h *PaymentHTTP) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.confirm")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "payment_confirm_failed", err)
	}
	orderID, err := pathID(c, "orderId")
	if err != nil {
		return fail(l, "payment_confirm_failed", err)
	}

	order, res, err := h.Svc.Confirm(ctx, orderID, userID)
	if err != nil {
		return fail(l, "payment_confirm_failed", err)
	}

	l.Info("payment_confirm_success", "order_id", orderID)
	return ok(c, http.StatusOK, paymentResult{Order: order, Payment: res})
}

func (h *PaymentHTTP) Refund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.refund")

	orderID, err := pathID(c, "orderId")
	if err != nil {
		return fail(l, "payment_refund_failed", err)
	}

	order, refund, err := h.Svc.Refund(ctx, orderID)
	if err != nil {
		return fail(l, "payment_refund_failed", err)
	}

	l.Info("payment_refund_success", "order_id", orderID)
	return ok(c, http.StatusOK, paymentResult{Order: order, Refund: refund})
}

// Webhook needs the raw body for signature checks, so it bypasses Bind.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	provider := c.Param("provider")
	l := logging.FromContext(ctx).With("handler", "payment.webhook", "provider", provider)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return fail(l, "webhook_failed", service.Validation("Invalid request body"))
	}

	if err := h.Svc.HandleWebhook(ctx, provider, c.Request().Header, body); err != nil {
		return fail(l, "webhook_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
