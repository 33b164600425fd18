package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

const genericMessage = "Something went wrong!"

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// statusOf maps domain error kinds onto HTTP statuses.
func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// panicError carries the stack of a recovered handler panic.
type panicError struct {
	err   error
	stack []byte
}

func (e *panicError) Error() string { return e.err.Error() }
func (e *panicError) Unwrap() error { return e.err }

// recoverPanic keeps the stack captured at the panic site for ErrorHandler.
func recoverPanic(c echo.Context, err error, stack []byte) error {
	logging.FromContext(c.Request().Context()).Error("handler_panic", "error", err, "stack", string(stack))
	return &panicError{err: err, stack: stack}
}

// ErrorHandler renders every error as {status, message}. Internal details
// are only exposed in development, along with the stack of a recovered panic.
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusOf(err)
		body := errorBody{Status: "fail", Message: messageOf(err, status, development)}
		if status >= 500 {
			body.Status = "error"
		}
		var pe *panicError
		if development && errors.As(err, &pe) {
			body.Stack = string(pe.stack)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", werr)
		}
	}
}

func messageOf(err error, status int, development bool) string {
	var de *service.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if status >= 500 && !development {
			return genericMessage
		}
		if m, ok := he.Message.(string); ok {
			return m
		}
		return fmt.Sprint(he.Message)
	}
	if development {
		return err.Error()
	}
	return genericMessage
}

// fail logs a handler failure at the level its status deserves and passes
// the error on to the error handler.
func fail(l *slog.Logger, event string, err error) error {
	status := statusOf(err)
	if status >= 500 {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", messageOf(err, status, true), "error", err)
	}
	return err
}
