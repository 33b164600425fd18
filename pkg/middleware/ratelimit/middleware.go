package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/pkg/logging"
)

const TooManyRequestsMessage = "Too many requests from this IP, please try again after a minute"

type Config struct {
	Limiter Limiter
	Skipper func(c echo.Context) bool
}

// Middleware rejects requests over the per-IP limit. Limiter errors fail open.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			ip := c.RealIP()

			res, err := cfg.Limiter.Allow(ctx, ip)
			if err != nil {
				logging.FromContext(ctx).Error("rate_limit_error", "remote_ip", ip, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			if res.Remaining >= 0 {
				h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			}
			reset := int(time.Until(res.ResetAt).Round(time.Second).Seconds())
			if reset < 0 {
				reset = 0
			}
			h.Set("RateLimit-Reset", strconv.Itoa(reset))

			if !res.Allowed {
				logging.FromContext(ctx).Warn("rate_limit_exceeded", "remote_ip", ip, "limit", res.Limit)
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status":  "error",
					"message": TooManyRequestsMessage,
				})
			}
			return next(c)
		}
	}
}
