package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}
	cart, err := h.Svc.Get(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}
	return ok(c, http.StatusOK, cart)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_to_cart")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "add_to_cart_failed", err)
	}
	var req transport.AddToCartRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "add_to_cart_failed", err)
	}

	cart, err := h.Svc.Add(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_to_cart_failed", err)
	}

	l.Info("add_to_cart_success", "user_id", userID, "product_id", req.ProductID, "quantity", req.Quantity)
	return ok(c, http.StatusOK, cart)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	var req transport.UpdateCartItemRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_item_failed", err)
	}

	cart, err := h.Svc.UpdateQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	return ok(c, http.StatusOK, cart)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "remove_item_failed", err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "remove_item_failed", err)
	}

	cart, err := h.Svc.Remove(ctx, userID, productID)
	if err != nil {
		return fail(l, "remove_item_failed", err)
	}
	return ok(c, http.StatusOK, cart)
}

func (h *CartHTTP) ApplyDiscount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.apply_discount")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "apply_discount_failed", err)
	}
	var req transport.ApplyDiscountRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "apply_discount_failed", err)
	}

	cart, err := h.Svc.ApplyDiscount(ctx, userID, req.Code)
	if err != nil {
		return fail(l, "apply_discount_failed", err)
	}

	l.Info("apply_discount_success", "user_id", userID, "discount", cart.Discount)
	return ok(c, http.StatusOK, cart)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear_cart")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "clear_cart_failed", err)
	}
	cart, err := h.Svc.Clear(ctx, userID)
	if err != nil {
		return fail(l, "clear_cart_failed", err)
	}
	return ok(c, http.StatusOK, cart)
}
