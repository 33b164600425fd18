package service

import (
	"context"

	"github.com/Skotchmaster/petstore/pkg/events"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

const (
	EventProductCreated     = "product_created"
	EventProductUpdated     = "product_updated"
	EventProductDeleted     = "product_deleted"
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderCancelled     = "order_cancelled"
	EventPaymentUpdated     = "payment_status_changed"
)

// publish never fails the caller; the row is already committed.
func publish(ctx context.Context, pub events.Publisher, topic, key, eventType string, data any) {
	if pub == nil || topic == "" {
		return
	}
	if err := pub.PublishEvent(ctx, topic, key, events.New(eventType, data)); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", eventType, "key", key, "error", err)
	}
}
