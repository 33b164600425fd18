package service

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/testutil"
	"github.com/Skotchmaster/petstore/pkg/events"
)

type recordedEvent struct {
	Topic string
	Key   string
	Type  string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	typ := ""
	if e, ok := event.(events.Event); ok {
		typ = e.Type
	}
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Type: typ})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Template)
	}
	return out
}

type testEnv struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Events   *recordingPublisher
	Notifier *recordingNotifier

	Cart   *CartService
	Orders *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	r := repo.New(db)
	pub := &recordingPublisher{}
	n := &recordingNotifier{}

	return &testEnv{
		DB:       db,
		Repo:     r,
		Events:   pub,
		Notifier: n,
		Cart:     &CartService{Repo: r},
		Orders:   &OrderService{Repo: r, Events: pub, Notifier: n, Topic: "order_events"},
	}
}
