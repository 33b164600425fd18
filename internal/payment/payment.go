package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

var (
	ErrUnsupportedMethod = errors.New("payment method has no online gateway")
	ErrNotConfigured     = errors.New("payment gateway is not configured")
	ErrInvalidSignature  = errors.New("webhook signature verification failed")
)

// Intent is what the client needs to finish paying with the provider.
type Intent struct {
	Provider     string `json:"provider"`
	Reference    string `json:"-"`
	ClientSecret string `json:"clientSecret,omitempty"`
	IntentID     string `json:"paymentIntentId,omitempty"`
	OrderID      string `json:"orderId,omitempty"`
	ApprovalURL  string `json:"approvalUrl,omitempty"`
	Status       string `json:"status"`
}

type Result struct {
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transactionId"`
	CaptureID     string    `json:"captureId,omitempty"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paymentDate"`
}

type Refund struct {
	Provider string `json:"provider"`
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

// Event is a verified webhook notification.
type Event struct {
	Provider  string
	Type      string
	Reference string
}

// PaymentStatus maps provider event types onto order payment states.
// ok is false for events that do not move the payment.
func (e Event) PaymentStatus() (status string, ok bool) {
	switch e.Type {
	case "payment_intent.succeeded", "PAYMENT.CAPTURE.COMPLETED":
		return StatusCompleted, true
	case "payment_intent.payment_failed", "PAYMENT.CAPTURE.DENIED":
		return StatusFailed, true
	case "charge.refunded", "PAYMENT.CAPTURE.REFUNDED", "PAYMENT.REFUND.COMPLETED":
		return StatusRefunded, true
	}
	return "", false
}

type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (*Intent, error)
	// ConfirmPayment asks the provider for the outcome of reference, capturing
	// it first where the provider needs that.
	ConfirmPayment(ctx context.Context, reference string) (*Result, error)
	// Refund reverses a completed payment; captureID is empty when the
	// provider refunds by reference alone.
	Refund(ctx context.Context, reference, captureID string, amount decimal.Decimal) (*Refund, error)
	ParseWebhook(ctx context.Context, header http.Header, body []byte) (*Event, error)
}

// Registry resolves a gateway by provider name or by order payment method.
type Registry map[string]Gateway

func (r Registry) Provider(name string) (Gateway, error) {
	g, ok := r[name]
	if !ok || g == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	return g, nil
}

func (r Registry) ForMethod(method string) (Gateway, error) {
	switch method {
	case "stripe", "credit_card":
		return r.Provider(ProviderStripe)
	case "paypal":
		return r.Provider(ProviderPayPal)
	}
	return nil, ErrUnsupportedMethod
}

// APIError is a non-2xx provider response. Err holds the SDK's own error.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }
