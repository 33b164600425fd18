package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "order_create_failed", err)
	}
	var req transport.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "order_create_failed", err)
	}

	order, err := h.Svc.Checkout(ctx, userID, service.CheckoutInput{
		ShippingAddress: req.ShippingAddress.ToModel(),
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return fail(l, "order_create_failed", err)
	}

	l.Info("order_create_success", "order_id", order.ID, "user_id", userID, "total", order.TotalAmount)
	return ok(c, http.StatusCreated, order)
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.my_orders")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "my_orders_failed", err)
	}
	p := parsePage(c)
	total, items, err := h.Svc.ListMine(ctx, userID, p.repo())
	if err != nil {
		return fail(l, "my_orders_failed", err)
	}
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	p := parsePage(c)
	total, items, err := h.Svc.ListAll(ctx, c.QueryParam("status"), p.repo())
	if err != nil {
		return fail(l, "get_orders_failed", err)
	}
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	a, err := actor(c)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	order, err := h.Svc.Get(ctx, id, a.ID, a.IsAdmin())
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return ok(c, http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	a, err := actor(c)
	if err != nil {
		return fail(l, "order_cancel_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "order_cancel_failed", err)
	}
	order, err := h.Svc.Cancel(ctx, id, a.ID, a.IsAdmin())
	if err != nil {
		return fail(l, "order_cancel_failed", err)
	}

	l.Info("order_cancel_success", "order_id", id, "actor_id", a.ID)
	return ok(c, http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "order_status_failed", err)
	}
	var req transport.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "order_status_failed", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, id, service.StatusUpdate{
		Status:            req.Status,
		TrackingNumber:    req.TrackingNumber,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	})
	if err != nil {
		return fail(l, "order_status_failed", err)
	}

	l.Info("order_status_success", "order_id", id, "status", order.Status)
	return ok(c, http.StatusOK, order)
}

func (h *OrderHTTP) UpdatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_payment")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "order_payment_failed", err)
	}
	var req transport.UpdatePaymentStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "order_payment_failed", err)
	}

	order, err := h.Svc.UpdatePayment(ctx, id, service.PaymentUpdate{
		PaymentStatus: req.PaymentStatus,
		TransactionID: req.TransactionID,
		PaymentDate:   req.PaymentDate,
	})
	if err != nil {
		return fail(l, "order_payment_failed", err)
	}

	l.Info("order_payment_success", "order_id", id, "payment_status", order.PaymentStatus)
	return ok(c, http.StatusOK, order)
}
