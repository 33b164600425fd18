package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

type PayPalConfig struct {
	ClientID  string
	Secret    string
	WebhookID string
	BaseURL   string
	Currency  string
	ReturnURL string
	CancelURL string
}

// PayPal drives the orders v2 API through the plutov/paypal client, which
// caches the OAuth token between calls.
type PayPal struct {
	cfg PayPalConfig
	pc  *paypal.Client
	now func() time.Time
}

func NewPayPal(cfg PayPalConfig, hc *http.Client) (*PayPal, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = paypal.APIBaseSandBox
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Currency = strings.ToUpper(cfg.Currency)

	pc, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("paypal: %w", err)
	}
	pc.SetHTTPClient(defaultHTTPClient(hc))
	return &PayPal{cfg: cfg, pc: pc, now: time.Now}, nil
}

func (p *PayPal) Name() string { return ProviderPayPal }

func (p *PayPal) CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (*Intent, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: orderID,
		Amount:      &paypal.PurchaseUnitAmount{Currency: p.cfg.Currency, Value: amount.StringFixed(2)},
	}}
	appCtx := &paypal.ApplicationContext{ReturnURL: p.cfg.ReturnURL, CancelURL: p.cfg.CancelURL}
	requestID := fmt.Sprintf("order-%s-%s", orderID, amount.StringFixed(2))

	order, err := retry(ctx, ProviderPayPal, func() (*paypal.Order, error) {
		return p.pc.CreateOrderWithPaypalRequestID(ctx, paypal.OrderIntentCapture, units, nil, appCtx, requestID)
	})
	if err != nil {
		return nil, err
	}

	intent := &Intent{Provider: ProviderPayPal, Reference: order.ID, OrderID: order.ID, Status: order.Status}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			intent.ApprovalURL = l.Href
			break
		}
	}
	return intent, nil
}

// ConfirmPayment captures an approved PayPal order.
func (p *PayPal) ConfirmPayment(ctx context.Context, reference string) (*Result, error) {
	out, err := retry(ctx, ProviderPayPal, func() (*paypal.CaptureOrderResponse, error) {
		return p.pc.CaptureOrderWithPaypalRequestId(ctx, reference, paypal.CaptureOrderRequest{}, "capture-"+reference, nil)
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Provider: ProviderPayPal, TransactionID: out.ID, PaidAt: p.now().UTC()}
	if len(out.PurchaseUnits) > 0 && out.PurchaseUnits[0].Payments != nil && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		res.CaptureID = out.PurchaseUnits[0].Payments.Captures[0].ID
	}
	switch out.Status {
	case "COMPLETED":
		res.Status = StatusCompleted
	case "VOIDED":
		res.Status = StatusFailed
	default:
		res.Status = StatusPending
	}
	return res, nil
}

func (p *PayPal) Refund(ctx context.Context, _, captureID string, amount decimal.Decimal) (*Refund, error) {
	if captureID == "" {
		return nil, errors.New("paypal: refund needs a capture id")
	}
	req := paypal.RefundCaptureRequest{
		Amount: &paypal.Money{Currency: p.cfg.Currency, Value: amount.StringFixed(2)},
	}
	out, err := retry(ctx, ProviderPayPal, func() (*paypal.RefundResponse, error) {
		return p.pc.RefundCaptureWithPaypalRequestId(ctx, captureID, req, "refund-"+captureID)
	})
	if err != nil {
		return nil, err
	}
	return &Refund{Provider: ProviderPayPal, RefundID: out.ID, Status: out.Status}, nil
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string        `json:"id"`
		Links             []paypal.Link `json:"links"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// ParseWebhook asks PayPal to verify the transmission before trusting it.
func (p *PayPal) ParseWebhook(ctx context.Context, header http.Header, body []byte) (*Event, error) {
	if p.cfg.WebhookID == "" {
		return nil, ErrInvalidSignature
	}
	var evt paypalEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, ErrInvalidSignature
	}

	out, err := retry(ctx, ProviderPayPal, func() (*paypal.VerifyWebhookResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header = header.Clone()
		return p.pc.VerifyWebhookSignature(ctx, req, p.cfg.WebhookID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if out.VerificationStatus != "SUCCESS" {
		return nil, ErrInvalidSignature
	}

	return &Event{Provider: ProviderPayPal, Type: evt.EventType, Reference: paypalReference(evt)}, nil
}

// paypalReference picks the id stored on the order: the checkout order for
// captures, the parent capture for refunds.
func paypalReference(evt paypalEvent) string {
	if id := evt.Resource.SupplementaryData.RelatedIDs.OrderID; id != "" {
		return id
	}
	for _, l := range evt.Resource.Links {
		if l.Rel == "up" {
			if u, err := url.Parse(l.Href); err == nil {
				return path.Base(u.Path)
			}
		}
	}
	return evt.Resource.ID
}
