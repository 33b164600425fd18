package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
	"github.com/Skotchmaster/petstore/pkg/tokens"
)

type AuthHTTP struct {
	Svc           *service.AuthService
	SecureCookies bool
}

func (h *AuthHTTP) setCookies(c echo.Context, pair *tokens.Pair) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp, h.SecureCookies))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, h.SecureCookies))
}

func (h *AuthHTTP) clearCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.SecureCookies))
}

func (h *AuthHTTP) respondWithTokens(c echo.Context, status int, user *models.User, pair *tokens.Pair) error {
	h.setCookies(c, pair)
	return ok(c, status, transport.AuthResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req transport.SignupRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "signup_failed", err)
	}

	user, pair, err := h.Svc.Signup(ctx, service.SignupInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address.ToModel(),
	})
	if err != nil {
		return fail(l, "signup_failed", err)
	}

	l.Info("signup_success", "user_id", user.ID)
	return h.respondWithTokens(c, http.StatusCreated, user, pair)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "login_failed", err)
	}

	user, pair, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_success", "user_id", user.ID)
	return h.respondWithTokens(c, http.StatusOK, user, pair)
}

// refreshToken prefers the cookie and falls back to the JSON body.
func refreshToken(c echo.Context) string {
	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req transport.RefreshRequest
	_ = c.Bind(&req)
	return req.RefreshToken
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	raw := refreshToken(c)
	if raw == "" {
		return fail(l, "refresh_failed", service.Unauthorized("Refresh token missing"))
	}
	pair, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		h.clearCookies(c)
		return fail(l, "refresh_failed", err)
	}

	h.setCookies(c, pair)
	return ok(c, http.StatusOK, map[string]string{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if err := h.Svc.Logout(ctx, refreshToken(c)); err != nil {
		l.Error("logout_revoke_failed", "status", 500, "error", err)
	}
	h.clearCookies(c)
	return okMessage(c, http.StatusOK, "Logged out successfully")
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.forgot_password")

	var req transport.ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "forgot_password_failed", err)
	}
	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		return fail(l, "forgot_password_failed", err)
	}
	return okMessage(c, http.StatusOK, "If that email is registered, a reset token has been sent")
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "reset_password_failed", err)
	}
	user, pair, err := h.Svc.ResetPassword(ctx, req.Token, req.Password)
	if err != nil {
		return fail(l, "reset_password_failed", err)
	}
	return h.respondWithTokens(c, http.StatusOK, user, pair)
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify_email")

	if err := h.Svc.VerifyEmail(ctx, c.Param("token")); err != nil {
		return fail(l, "verify_email_failed", err)
	}
	return okMessage(c, http.StatusOK, "Email verified successfully")
}

func (h *AuthHTTP) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.resend_verification")

	a, err := actor(c)
	if err != nil {
		return fail(l, "resend_verification_failed", err)
	}
	if err := h.Svc.ResendVerification(ctx, a.ID); err != nil {
		return fail(l, "resend_verification_failed", err)
	}
	return okMessage(c, http.StatusOK, "Verification email sent")
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.change_password")

	a, err := actor(c)
	if err != nil {
		return fail(l, "change_password_failed", err)
	}
	var req transport.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "change_password_failed", err)
	}
	pair, err := h.Svc.ChangePassword(ctx, a.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return fail(l, "change_password_failed", err)
	}
	h.setCookies(c, pair)
	return ok(c, http.StatusOK, map[string]string{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}
