package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v82"

	"github.com/Skotchmaster/petstore/pkg/logging"
)

const maxTries = 3

func defaultHTTPClient(hc *http.Client) *http.Client {
	if hc == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}
	return hc
}

// retry runs call with exponential backoff. Transport errors, 429 and 5xx are
// retried; other provider responses fail at once as *APIError.
func retry[T any](ctx context.Context, provider string, call func() (T, error)) (T, error) {
	l := logging.FromContext(ctx).With("provider", provider)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		out, err := call()
		if err == nil {
			return out, nil
		}
		err = asAPIError(provider, err)
		if ctx.Err() != nil || !retryable(err) {
			return out, backoff.Permanent(err)
		}
		l.Warn("payment_api_retry", "attempt", attempt, "error", err)
		return out, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

// asAPIError flattens SDK error responses into *APIError.
func asAPIError(provider string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &APIError{Provider: provider, StatusCode: se.HTTPStatusCode, Message: se.Msg, Err: err}
	}
	var pe *paypal.ErrorResponse
	if errors.As(err, &pe) && pe.Response != nil {
		msg := pe.Message
		if msg == "" {
			msg = pe.Name
		}
		return &APIError{Provider: provider, StatusCode: pe.Response.StatusCode, Message: msg, Err: err}
	}
	return err
}

// sdkLogger routes the Stripe client's printf logging into slog. Request
// chatter goes to debug.
type sdkLogger struct {
	l *slog.Logger
}

func (s sdkLogger) Debugf(format string, v ...any) { s.l.Debug(fmt.Sprintf(format, v...)) }
func (s sdkLogger) Infof(format string, v ...any)  { s.l.Debug(fmt.Sprintf(format, v...)) }
func (s sdkLogger) Warnf(format string, v ...any)  { s.l.Warn(fmt.Sprintf(format, v...)) }
func (s sdkLogger) Errorf(format string, v ...any) { s.l.Error(fmt.Sprintf(format, v...)) }
