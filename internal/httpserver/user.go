package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
	"github.com/Skotchmaster/petstore/pkg/tokens"
)

type UserHTTP struct {
	Svc           *service.UserService
	SecureCookies bool
}

func (h *UserHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.me")

	a, err := actor(c)
	if err != nil {
		return fail(l, "get_me_failed", err)
	}
	user, err := h.Svc.Me(ctx, a.ID)
	if err != nil {
		return fail(l, "get_me_failed", err)
	}
	return ok(c, http.StatusOK, user)
}

func (h *UserHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update_profile")

	a, err := actor(c)
	if err != nil {
		return fail(l, "update_profile_failed", err)
	}
	var req transport.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_profile_failed", err)
	}

	in := service.ProfileInput{Name: req.Name, PhoneNumber: req.PhoneNumber}
	if req.Address != nil {
		addr := req.Address.ToModel()
		in.Address = &addr
	}
	user, err := h.Svc.UpdateProfile(ctx, a.ID, in)
	if err != nil {
		return fail(l, "update_profile_failed", err)
	}

	l.Info("update_profile_success", "user_id", a.ID)
	return ok(c, http.StatusOK, user)
}

func (h *UserHTTP) DeleteAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete_account")

	a, err := actor(c)
	if err != nil {
		return fail(l, "delete_account_failed", err)
	}
	if err := h.Svc.DeleteAccount(ctx, a.ID); err != nil {
		return fail(l, "delete_account_failed", err)
	}
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.SecureCookies))
	return c.NoContent(http.StatusNoContent)
}
