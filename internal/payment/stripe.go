package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const stripeTolerance = 5 * time.Minute

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	Currency      string
}

// Stripe drives the payment intents API through stripe-go. The SDK's own
// network retries are off; calls go through retry instead.
type Stripe struct {
	cfg StripeConfig
	sc  *stripe.Client
	now func() time.Time
}

func NewStripe(cfg StripeConfig, hc *http.Client) *Stripe {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	cfg.Currency = strings.ToLower(cfg.Currency)

	bc := &stripe.BackendConfig{
		HTTPClient:        defaultHTTPClient(hc),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     sdkLogger{l: slog.Default().With("provider", ProviderStripe)},
	}
	if cfg.BaseURL != "" {
		bc.URL = stripe.String(cfg.BaseURL)
	}
	sc := stripe.NewClient(cfg.SecretKey, stripe.WithBackends(stripe.NewBackendsWithConfig(bc)))
	return &Stripe{cfg: cfg, sc: sc, now: time.Now}
}

func (s *Stripe) Name() string { return ProviderStripe }

// MinorUnits converts a decimal amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (s *Stripe) CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (*Intent, error) {
	minor := MinorUnits(amount)
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(s.cfg.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("orderId", orderID)
	params.SetIdempotencyKey(fmt.Sprintf("order-%s-%d", orderID, minor))

	pi, err := retry(ctx, ProviderStripe, func() (*stripe.PaymentIntent, error) {
		return s.sc.V1PaymentIntents.Create(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return &Intent{
		Provider:     ProviderStripe,
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
		IntentID:     pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment reads the intent; the client has already confirmed it.
func (s *Stripe) ConfirmPayment(ctx context.Context, reference string) (*Result, error) {
	pi, err := retry(ctx, ProviderStripe, func() (*stripe.PaymentIntent, error) {
		return s.sc.V1PaymentIntents.Retrieve(ctx, reference, nil)
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Provider: ProviderStripe, TransactionID: pi.ID, PaidAt: s.now().UTC()}
	if pi.LatestCharge != nil {
		res.CaptureID = pi.LatestCharge.ID
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Status = StatusCompleted
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		res.Status = StatusFailed
	default:
		res.Status = StatusPending
	}
	return res, nil
}

func (s *Stripe) Refund(ctx context.Context, reference, _ string, amount decimal.Decimal) (*Refund, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(reference),
		Amount:        stripe.Int64(MinorUnits(amount)),
	}
	params.SetIdempotencyKey("refund-" + reference)

	r, err := retry(ctx, ProviderStripe, func() (*stripe.Refund, error) {
		return s.sc.V1Refunds.Create(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return &Refund{Provider: ProviderStripe, RefundID: r.ID, Status: string(r.Status)}, nil
}

// ParseWebhook checks the Stripe-Signature header before decoding the event.
// Charge and refund events are keyed by their payment intent.
func (s *Stripe) ParseWebhook(_ context.Context, header http.Header, body []byte) (*Event, error) {
	if s.cfg.WebhookSecret == "" {
		return nil, ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithOptions(body, header.Get("Stripe-Signature"), s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{Tolerance: stripeTolerance, IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var obj map[string]any
	if evt.Data != nil {
		obj = evt.Data.Object
	}
	ref, _ := obj["id"].(string)
	if kind, _ := obj["object"].(string); kind != "payment_intent" {
		if pi, _ := obj["payment_intent"].(string); pi != "" {
			ref = pi
		}
	}
	return &Event{Provider: ProviderStripe, Type: string(evt.Type), Reference: ref}, nil
}
