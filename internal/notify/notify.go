package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/petstore/pkg/events"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

const (
	TemplateWelcome             = "welcome"
	TemplateVerifyEmail         = "verify-email"
	TemplatePasswordReset       = "password-reset"
	TemplateOrderConfirmation   = "order-confirmation"
	TemplateOrderStatusUpdate   = "order-status-update"
	TemplateOrderCancelled      = "order-cancelled"
	TemplatePaymentStatus       = "payment-status-update"
	TemplateAppointmentBooked   = "appointment-booked"
	TemplateAppointmentRequest  = "appointment-request"
	TemplateAppointmentStatus   = "appointment-status-update"
	TemplateAppointmentCanceled = "appointment-cancelled"
)

type Message struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// KafkaNotifier hands messages to the mailer through the notifications topic.
type KafkaNotifier struct {
	pub   events.Publisher
	topic string
}

func NewKafkaNotifier(pub events.Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{pub: pub, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify: empty recipient for %s", msg.Template)
	}
	return n.pub.PublishEvent(ctx, n.topic, msg.To, events.New("notification."+msg.Template, msg))
}

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(l *slog.Logger) *LogNotifier {
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.log.InfoContext(ctx, "notification", "to", msg.To, "subject", msg.Subject, "template", msg.Template)
	return nil
}

// Send delivers best-effort: failures are logged and swallowed.
func Send(ctx context.Context, n Notifier, msg Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		logging.FromContext(ctx).Warn("notification_failed", "template", msg.Template, "to", msg.To, "error", err)
	}
}
