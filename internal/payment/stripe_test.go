package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func TestMinorUnits(t *testing.T) {
	tests := map[string]int64{
		"0":      0,
		"10":     1000,
		"19.99":  1999,
		"0.005":  1,
		"12.344": 1234,
	}
	for in, want := range tests {
		assert.Equal(t, want, MinorUnits(decimal.RequireFromString(in)), in)
	}
}

func signStripe(body []byte, secret string, at time.Time) http.Header {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: secret, Timestamp: at})
	h := http.Header{}
	h.Set("Stripe-Signature", signed.Header)
	return h
}

func TestStripeParseWebhook_Signature(t *testing.T) {
	body := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	now := time.Now()

	tests := []struct {
		name   string
		header http.Header
		secret string
		body   []byte
		ok     bool
	}{
		{"valid", signStripe(body, "secret", now), "secret", body, true},
		{"wrong secret", signStripe(body, "other", now), "secret", body, false},
		{"tampered body", signStripe(body, "secret", now), "secret", []byte(`{"type":"payment_intent.succeeded"}`), false},
		{"too old", signStripe(body, "secret", now.Add(-10*time.Minute)), "secret", body, false},
		{"empty header", http.Header{}, "secret", body, false},
		{"no secret configured", signStripe(body, "secret", now), "", body, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStripe(StripeConfig{WebhookSecret: tt.secret}, nil)
			_, err := s.ParseWebhook(context.Background(), tt.header, tt.body)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestStripeParseWebhook(t *testing.T) {
	s := NewStripe(StripeConfig{WebhookSecret: "secret"}, nil)
	sign := func(body string) http.Header { return signStripe([]byte(body), "secret", time.Now()) }

	intent := `{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`
	evt, err := s.ParseWebhook(context.Background(), sign(intent), []byte(intent))
	require.NoError(t, err)
	assert.Equal(t, "pi_1", evt.Reference)
	status, ok := evt.PaymentStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, status)

	charge := `{"type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_1"}}}`
	evt, err = s.ParseWebhook(context.Background(), sign(charge), []byte(charge))
	require.NoError(t, err)
	assert.Equal(t, "pi_1", evt.Reference)
	assert.Equal(t, "charge.refunded", evt.Type)

	_, err = s.ParseWebhook(context.Background(), http.Header{}, []byte(intent))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestEventPaymentStatus(t *testing.T) {
	tests := []struct {
		typ    string
		status string
		ok     bool
	}{
		{"payment_intent.succeeded", StatusCompleted, true},
		{"PAYMENT.CAPTURE.COMPLETED", StatusCompleted, true},
		{"payment_intent.payment_failed", StatusFailed, true},
		{"PAYMENT.CAPTURE.DENIED", StatusFailed, true},
		{"charge.refunded", StatusRefunded, true},
		{"PAYMENT.CAPTURE.REFUNDED", StatusRefunded, true},
		{"customer.created", "", false},
	}
	for _, tt := range tests {
		status, ok := Event{Type: tt.typ}.PaymentStatus()
		assert.Equal(t, tt.ok, ok, tt.typ)
		assert.Equal(t, tt.status, status, tt.typ)
	}
}

func TestRegistry(t *testing.T) {
	r := Registry{ProviderStripe: NewStripe(StripeConfig{}, nil)}

	g, err := r.ForMethod("credit_card")
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, g.Name())

	_, err = r.ForMethod("paypal")
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = r.ForMethod("cash_on_delivery")
	require.ErrorIs(t, err, ErrUnsupportedMethod)

	_, err = r.Provider("bitcoin")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripeCreatePayment(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"api_error"}}`)
			return
		}
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "order-42-1999", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1999", r.PostForm.Get("amount"))
		assert.Equal(t, "eur", r.PostForm.Get("currency"))
		assert.Equal(t, "42", r.PostForm.Get("metadata[orderId]"))
		fmt.Fprint(w, `{"id":"pi_9","client_secret":"pi_9_secret","status":"requires_payment_method"}`)
	}))
	defer srv.Close()

	s := NewStripe(StripeConfig{SecretKey: "sk_test", BaseURL: srv.URL, Currency: "EUR"}, srv.Client())
	intent, err := s.CreatePayment(context.Background(), "42", decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	assert.Equal(t, "pi_9", intent.Reference)
	assert.Equal(t, "pi_9_secret", intent.ClientSecret)
	assert.EqualValues(t, 2, hits.Load())
}

func TestStripeClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"No such payment_intent","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	s := NewStripe(StripeConfig{SecretKey: "sk_test", BaseURL: srv.URL}, srv.Client())
	_, err := s.ConfirmPayment(context.Background(), "pi_missing")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "No such payment_intent", apiErr.Message)
	var sdkErr *stripe.Error
	assert.True(t, errors.As(err, &sdkErr))
	assert.EqualValues(t, 1, hits.Load())
}

func TestStripeConfirmPaymentStatuses(t *testing.T) {
	var status atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"pi_1","status":%q,"latest_charge":"ch_1"}`, status.Load())
	}))
	defer srv.Close()
	s := NewStripe(StripeConfig{BaseURL: srv.URL}, srv.Client())

	for in, want := range map[string]string{
		"processing":              StatusPending,
		"succeeded":               StatusCompleted,
		"canceled":                StatusFailed,
		"requires_payment_method": StatusFailed,
	} {
		status.Store(in)
		res, err := s.ConfirmPayment(context.Background(), "pi_1")
		require.NoError(t, err)
		assert.Equal(t, want, res.Status, in)
		assert.Equal(t, "ch_1", res.CaptureID)
	}
}
