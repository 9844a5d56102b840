package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fjod/azura/internal/domain"
	"github.com/google/uuid"
)

type Recipients interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

type Products interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type OutcomeRecorder interface {
	EmailOutcome(kind string, err error)
}

// Notifier turns order events into emails. Sends run in the background on a context
// detached from the caller; failures are logged and never reach the caller.
type Notifier struct {
	dispatcher  Dispatcher
	recipients  Recipients
	products    Products
	recorder    OutcomeRecorder
	frontendURL string
	timeout     time.Duration
	log         *slog.Logger
	wg          sync.WaitGroup
}

func NewNotifier(dispatcher Dispatcher, recipients Recipients, products Products, recorder OutcomeRecorder, frontendURL string, log *slog.Logger) *Notifier {
	return &Notifier{
		dispatcher:  dispatcher,
		recipients:  recipients,
		products:    products,
		recorder:    recorder,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		timeout:     30 * time.Second,
		log:         log.With(slog.String("component", "notifier")),
	}
}

func (n *Notifier) OrderConfirmation(ctx context.Context, order domain.Order) {
	n.dispatch(ctx, KindOrderConfirmation, order)
}

func (n *Notifier) ReviewRequest(ctx context.Context, order domain.Order) {
	n.dispatch(ctx, KindReviewRequest, order)
}

// Wait blocks until in-flight sends finish or ctx ends.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) dispatch(ctx context.Context, kind string, order domain.Order) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()

		err := n.send(sendCtx, kind, order)
		if n.recorder != nil {
			n.recorder.EmailOutcome(kind, err)
		}
		if err != nil {
			n.log.ErrorContext(sendCtx, "failed to send email",
				slog.String("kind", kind),
				slog.String("order_id", order.ID),
				slog.Any("error", err))
			return
		}
		n.log.InfoContext(sendCtx, "email sent", slog.String("kind", kind), slog.String("order_id", order.ID))
	}()
}

func (n *Notifier) send(ctx context.Context, kind string, order domain.Order) error {
	msg, err := n.compose(ctx, kind, order)
	if err != nil {
		return err
	}
	return n.dispatcher.Send(ctx, msg)
}

func (n *Notifier) compose(ctx context.Context, kind string, order domain.Order) (Message, error) {
	user, err := n.recipients.Get(ctx, order.OwnerID)
	if err != nil {
		return Message{}, fmt.Errorf("look up recipient %s: %w", order.OwnerID, err)
	}

	ids := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := n.products.GetMany(ctx, ids)
	if err != nil {
		return Message{}, fmt.Errorf("look up products: %w", err)
	}

	data := emailData{
		Name:    user.Name,
		OrderID: order.ID,
		Status:  order.Status.String(),
		Total:   order.Total.StringFixed(2),
	}
	for _, it := range order.Items {
		line := emailLine{
			Title:     it.ProductID,
			ReviewURL: n.frontendURL + "/review?productId=" + url.QueryEscape(it.ProductID),
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		}
		if p, ok := products[it.ProductID]; ok {
			line.Title = p.Title
			line.ImageURL = p.ImageURL
		}
		data.Lines = append(data.Lines, line)
	}

	msg := Message{ID: uuid.NewString(), Kind: kind, To: user.Email}
	switch kind {
	case KindOrderConfirmation:
		msg.Subject = confirmationSubject
		msg.HTML, err = render(confirmationTemplate, data)
	case KindReviewRequest:
		msg.Subject = reviewRequestSubject
		msg.HTML, err = render(reviewRequestTemplate, data)
	default:
		err = fmt.Errorf("unknown email kind %q", kind)
	}
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}
