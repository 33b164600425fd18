package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	loggingmw "github.com/Skotchmaster/petstore/pkg/middleware/logging"
	"github.com/Skotchmaster/petstore/pkg/middleware/ratelimit"
)

type Options struct {
	Development bool
	BodyLimit   string
	CORSOrigins []string
	Limiter     ratelimit.Limiter
}

// New builds the echo instance with the shared middleware chain. Routes are
// added by Register.
func New(logger *slog.Logger, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(opts.Development)

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{LogErrorFunc: recoverPanic}))
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     opts.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	if opts.BodyLimit != "" {
		e.Use(echomw.BodyLimit(opts.BodyLimit))
	}
	e.Use(echomw.Gzip())
	if opts.Limiter != nil {
		e.Use(ratelimit.Middleware(ratelimit.Config{
			Limiter: opts.Limiter,
			Skipper: func(c echo.Context) bool {
				return !strings.HasPrefix(c.Request().URL.Path, "/api")
			},
		}))
	}
	return e
}
