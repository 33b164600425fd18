package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/petstore/pkg/events"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type publisherMock struct{ mock.Mock }

func (m *publisherMock) PublishEvent(ctx context.Context, topic, key string, event any) error {
	return m.Called(ctx, topic, key, event).Error(0)
}

func TestKafkaNotifierPublishes(t *testing.T) {
	t.Parallel()

	pub := &publisherMock{}
	pub.On("PublishEvent", mock.Anything, "notifications", "a@b.c", mock.MatchedBy(func(ev events.Event) bool {
		m, ok := ev.Data.(Message)
		return ok && ev.Type == "notification.order-confirmation" && m.Subject == "Order Confirmation"
	})).Return(nil).Once()

	n := NewKafkaNotifier(pub, "notifications")
	require.NoError(t, n.Notify(context.Background(), Message{To: "a@b.c", Subject: "Order Confirmation", Template: TemplateOrderConfirmation}))
	pub.AssertExpectations(t)
}

func TestKafkaNotifierRejectsEmptyRecipient(t *testing.T) {
	t.Parallel()

	n := NewKafkaNotifier(&publisherMock{}, "notifications")
	assert.Error(t, n.Notify(context.Background(), Message{Template: TemplateWelcome}))
}

func TestSendSwallowsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := logging.IntoContext(context.Background(), logging.NewWithWriter(&buf, "info"))

	pub := &publisherMock{}
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	Send(ctx, NewKafkaNotifier(pub, "notifications"), Message{To: "x@y.z", Template: TemplateWelcome})
	assert.Contains(t, buf.String(), "notification_failed")
	assert.Contains(t, buf.String(), "broker down")

	Send(ctx, nil, Message{To: "x@y.z"})
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewLogNotifier(logging.NewWithWriter(&buf, "info"))
	require.NoError(t, n.Notify(context.Background(), Message{To: "x@y.z", Subject: "Hi", Template: TemplateWelcome}))
	assert.Contains(t, buf.String(), `"template":"welcome"`)
}
