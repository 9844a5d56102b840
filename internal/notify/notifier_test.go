package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fjod/azura/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	m    sync.Mutex
	sent []Message
	err  error
}

func (r *recordingDispatcher) Send(_ context.Context, msg Message) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingDispatcher) messages() []Message {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]Message(nil), r.sent...)
}

type stubRecipients struct{}

func (stubRecipients) Get(_ context.Context, id string) (*domain.User, error) {
	if id != "owner-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.User{ID: id, Name: "Ada", Email: "ada@example.com"}, nil
}

type stubProducts struct{}

func (stubProducts) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	out := map[string]domain.Product{}
	for _, id := range ids {
		if id == "p1" {
			out[id] = domain.Product{ID: id, Title: "Blue Mug", ImageURL: "https://cdn/mug.jpg"}
		}
	}
	return out, nil
}

type recorder struct {
	m        sync.Mutex
	outcomes map[string]int
}

func (r *recorder) EmailOutcome(kind string, err error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	key := kind + ":sent"
	if err != nil {
		key = kind + ":failed"
	}
	r.outcomes[key]++
}

func testOrder(owner string) domain.Order {
	items := []domain.OrderItem{
		{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10")},
		{ProductID: "gone", Quantity: 1, Price: decimal.RequireFromString("1.5")},
	}
	return domain.Order{
		ID:      "order-1",
		OwnerID: owner,
		Items:   items,
		Total:   domain.OrderTotal(items),
		Status:  domain.OrderStatusCompleted,
	}
}

func newTestNotifier(d Dispatcher, rec OutcomeRecorder) *Notifier {
	return NewNotifier(d, stubRecipients{}, stubProducts{}, rec, "https://shop.example/", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOrderConfirmation(t *testing.T) {
	d := &recordingDispatcher{}
	n := newTestNotifier(d, nil)

	n.OrderConfirmation(context.Background(), testOrder("owner-1"))
	require.NoError(t, n.Wait(context.Background()))

	sent := d.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, KindOrderConfirmation, sent[0].Kind)
	assert.Equal(t, "ada@example.com", sent[0].To)
	assert.Equal(t, confirmationSubject, sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Blue Mug")
	assert.Contains(t, sent[0].HTML, "21.50")
	assert.NotEmpty(t, sent[0].ID)
}

func TestReviewRequest_LinksEveryItem(t *testing.T) {
	d := &recordingDispatcher{}
	n := newTestNotifier(d, nil)

	n.ReviewRequest(context.Background(), testOrder("owner-1"))
	require.NoError(t, n.Wait(context.Background()))

	sent := d.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, reviewRequestSubject, sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "https://shop.example/review?productId=p1")
	assert.Contains(t, sent[0].HTML, "https://shop.example/review?productId=gone")
	assert.Contains(t, sent[0].HTML, "https://cdn/mug.jpg")
}

func TestDispatch_SurvivesCallerCancellation(t *testing.T) {
	d := &recordingDispatcher{}
	n := newTestNotifier(d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	n.OrderConfirmation(ctx, testOrder("owner-1"))
	cancel()

	require.NoError(t, n.Wait(context.Background()))
	assert.Len(t, d.messages(), 1)
}

func TestDispatch_FailuresAreRecordedNotReturned(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("smtp down")}
	rec := &recorder{}
	n := newTestNotifier(d, rec)

	n.OrderConfirmation(context.Background(), testOrder("owner-1"))
	n.ReviewRequest(context.Background(), testOrder("unknown-owner"))
	require.NoError(t, n.Wait(context.Background()))

	rec.m.Lock()
	defer rec.m.Unlock()
	assert.Equal(t, 1, rec.outcomes["order_confirmation:failed"])
	assert.Equal(t, 1, rec.outcomes["review_request:failed"])
}

func TestWait_HonoursContext(t *testing.T) {
	block := make(chan struct{})
	n := newTestNotifier(blockingDispatcher(block), nil)

	n.OrderConfirmation(context.Background(), testOrder("owner-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, n.Wait(ctx), context.DeadlineExceeded)

	close(block)
	require.NoError(t, n.Wait(context.Background()))
}

type blockingDispatcher chan struct{}

func (b blockingDispatcher) Send(context.Context, Message) error {
	<-b
	return nil
}
