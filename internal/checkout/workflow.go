// Package checkout turns a cart into an order: load, price, authorize, commit, clear, notify.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/payment"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TriggerCheckout        = "checkout"
	TriggerCreateOrder     = "create_order"
	TriggerCompleteSession = "complete_session"
)

type Cart interface {
	Lines(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	Clear(ctx context.Context, ownerID string) error
}

type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type Ledger interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)
}

type Notifier interface {
	OrderConfirmation(ctx context.Context, order domain.Order)
}

type Recorder interface {
	CheckoutOutcome(trigger, outcome string)
}

// Deps are the collaborators of a Workflow. Deferred may be nil when no deferred-payment
// authority is configured; Recorder may be nil.
type Deps struct {
	Cart     Cart
	Catalog  Catalog
	Ledger   Ledger
	Notifier Notifier
	Direct   payment.Authority
	Deferred payment.Authority
	Recorder Recorder
	Currency string
}

type Workflow struct {
	Deps
	tracer trace.Tracer
	log    *slog.Logger
}

func NewWorkflow(deps Deps, log *slog.Logger) *Workflow {
	return &Workflow{
		Deps:   deps,
		tracer: otel.Tracer("azura/checkout"),
		log:    log.With(slog.String("component", "checkout")),
	}
}

// Result is a committed order plus the client secret of a deferred payment.
type Result struct {
	Order        *domain.Order
	ClientSecret string
}

// Checkout charges the owner's cart with a card token and records a completed order.
func (w *Workflow) Checkout(ctx context.Context, ownerID, paymentToken string) (*domain.Order, error) {
	ctx, span := w.tracer.Start(ctx, "checkout.Checkout", trace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer span.End()

	res, err := w.run(ctx, attempt{
		trigger: TriggerCheckout,
		ownerID: ownerID,
		status:  domain.OrderStatusCompleted,
		authorize: func(ctx context.Context, amount int64) (payment.Authorization, error) {
			return w.Direct.Authorize(ctx, payment.Charge{
				AmountMinor: amount,
				Currency:    w.Currency,
				OwnerID:     ownerID,
				Token:       paymentToken,
			})
		},
	})
	w.finish(span, TriggerCheckout, err)
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

// CreateOrder records a pending order for the given lines and starts a deferred payment. An
// empty line set falls back to the owner's cart.
func (w *Workflow) CreateOrder(ctx context.Context, ownerID string, lines []domain.GuestCartLine, paymentMethod string) (*Result, error) {
	ctx, span := w.tracer.Start(ctx, "checkout.CreateOrder", trace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer span.End()

	a := attempt{
		trigger: TriggerCreateOrder,
		ownerID: ownerID,
		lines:   lines,
		status:  domain.OrderStatusPending,
		authorize: func(ctx context.Context, amount int64) (payment.Authorization, error) {
			if w.Deferred == nil {
				return payment.Authorization{}, fmt.Errorf("%w: deferred payments are not configured", domain.ErrPaymentUnavailable)
			}
			charge := payment.Charge{AmountMinor: amount, Currency: w.Currency, OwnerID: ownerID}
			if paymentMethod != "" {
				charge.Metadata = map[string]string{"paymentMethod": paymentMethod}
			}
			return w.Deferred.Authorize(ctx, charge)
		},
	}
	res, err := w.run(ctx, a)
	w.finish(span, TriggerCreateOrder, err)
	return res, err
}

// CompleteSession records the order for a checkout session the authority has already captured.
// Metadata carries userId and a JSON cartItems list. A session seen before returns the order
// recorded the first time.
func (w *Workflow) CompleteSession(ctx context.Context, sessionID string, metadata map[string]string) (*domain.Order, error) {
	ctx, span := w.tracer.Start(ctx, "checkout.CompleteSession", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	order, err := w.completeSession(ctx, sessionID, metadata)
	w.finish(span, TriggerCompleteSession, err)
	return order, err
}

func (w *Workflow) completeSession(ctx context.Context, sessionID string, metadata map[string]string) (*domain.Order, error) {
	ownerID := metadata["userId"]
	if ownerID == "" {
		return nil, stepError(StepLoad, fmt.Errorf("%w: session %s has no userId", domain.ErrValidation, sessionID))
	}
	lines, err := parseCartItems(metadata["cartItems"])
	if err != nil {
		return nil, stepError(StepLoad, err)
	}

	if existing, err := w.Ledger.GetByPaymentReference(ctx, sessionID); err == nil {
		w.log.InfoContext(ctx, "checkout session already recorded",
			slog.String("session_id", sessionID), slog.String("order_id", existing.ID))
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, stepError(StepLoad, err)
	}

	res, err := w.run(ctx, attempt{
		trigger:   TriggerCompleteSession,
		ownerID:   ownerID,
		lines:     lines,
		status:    domain.OrderStatusCompleted,
		reference: sessionID,
	})
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) && ce.Step == StepCommit && errors.Is(err, domain.ErrConflict) {
			// Concurrent delivery of the same event won the insert.
			if existing, gerr := w.Ledger.GetByPaymentReference(ctx, sessionID); gerr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return res.Order, nil
}

type authorizeFunc func(ctx context.Context, amountMinor int64) (payment.Authorization, error)

type attempt struct {
	trigger   string
	ownerID   string
	lines     []domain.GuestCartLine
	status    domain.OrderStatus
	authorize authorizeFunc
	// reference is used when authorize is nil.
	reference string
}

func (w *Workflow) run(ctx context.Context, a attempt) (*Result, error) {
	log := w.log.With(slog.String("trigger", a.trigger), slog.String("owner_id", a.ownerID))

	items, err := w.load(ctx, a)
	if err != nil {
		return nil, stepError(StepLoad, err)
	}

	total, amount, err := w.price(ctx, items)
	if err != nil {
		return nil, stepError(StepPrice, err)
	}

	auth := payment.Authorization{Reference: a.reference}
	if a.authorize != nil {
		auth, err = w.authorizeStep(ctx, a.authorize, amount)
		if err != nil {
			log.WarnContext(ctx, "payment not authorized", slog.String("total", total.String()), slog.Any("error", err))
			return nil, stepError(StepAuthorize, err)
		}
	}

	order := &domain.Order{
		OwnerID:          a.ownerID,
		Items:            items,
		Total:            total,
		Status:           a.status,
		PaymentReference: auth.Reference,
	}
	if err := w.commit(ctx, order); err != nil {
		log.ErrorContext(ctx, "order commit failed after authorization",
			slog.String("payment_reference", auth.Reference), slog.Any("error", err))
		return nil, stepError(StepCommit, err)
	}
	log.InfoContext(ctx, "order committed",
		slog.String("order_id", order.ID),
		slog.String("total", order.Total.String()),
		slog.String("status", order.Status.String()))

	w.clear(ctx, a.ownerID, order.ID)
	w.Notifier.OrderConfirmation(ctx, *order)

	return &Result{Order: order, ClientSecret: auth.ClientSecret}, nil
}

// load expands the requested lines (or the owner's cart) into snapshot items at current prices.
func (w *Workflow) load(ctx context.Context, a attempt) ([]domain.OrderItem, error) {
	ctx, span := w.tracer.Start(ctx, "checkout.load")
	defer span.End()

	lines := a.lines
	if len(lines) == 0 {
		cartLines, err := w.Cart.Lines(ctx, a.ownerID)
		if err != nil {
			return nil, err
		}
		for _, l := range cartLines {
			lines = append(lines, domain.GuestCartLine{ProductID: l.ProductID, Quantity: l.Quantity})
		}
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if err := domain.CheckLineQuantity(l.Quantity); err != nil {
			return nil, fmt.Errorf("product %s: %w", l.ProductID, err)
		}
		ids = append(ids, l.ProductID)
	}

	products, err := w.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", l.ProductID, domain.ErrNotFound)
		}
		items = append(items, domain.OrderItem{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price})
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}

// price sums the snapshot and converts it to the minor-unit amount that gets authorized.
// The committed total and the charged amount always come from this one computation.
func (w *Workflow) price(ctx context.Context, items []domain.OrderItem) (decimal.Decimal, int64, error) {
	_, span := w.tracer.Start(ctx, "checkout.price")
	defer span.End()

	total := domain.OrderTotal(items)
	span.SetAttributes(attribute.String("total", total.String()))
	amount, err := domain.MinorUnits(total)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, 0, err
	}
	span.SetAttributes(attribute.Int64("amount_minor", amount))
	return total, amount, nil
}

func (w *Workflow) authorizeStep(ctx context.Context, authorize authorizeFunc, amount int64) (payment.Authorization, error) {
	ctx, span := w.tracer.Start(ctx, "checkout.authorize")
	defer span.End()

	auth, err := authorize(ctx, amount)
	if err != nil {
		span.RecordError(err)
		return payment.Authorization{}, err
	}
	return auth, nil
}

func (w *Workflow) commit(ctx context.Context, order *domain.Order) error {
	ctx, span := w.tracer.Start(ctx, "checkout.commit")
	defer span.End()

	if err := w.Ledger.Create(ctx, order); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("order_id", order.ID))
	return nil
}

// clear empties the cart after commit. A failure leaves the order in place.
func (w *Workflow) clear(ctx context.Context, ownerID, orderID string) {
	ctx, span := w.tracer.Start(ctx, "checkout.clear")
	defer span.End()

	if err := w.Cart.Clear(ctx, ownerID); err != nil {
		span.RecordError(err)
		w.log.ErrorContext(ctx, "cart not cleared after commit",
			slog.String("owner_id", ownerID),
			slog.String("order_id", orderID),
			slog.Any("error", err))
	}
}

func (w *Workflow) finish(span trace.Span, trigger string, err error) {
	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if w.Recorder != nil {
		w.Recorder.CheckoutOutcome(trigger, outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "declined"
	case errors.Is(err, domain.ErrPaymentUnavailable):
		return "payment_unavailable"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		return "invalid"
	default:
		return "error"
	}
}

type sessionItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func parseCartItems(raw string) ([]domain.GuestCartLine, error) {
	if raw == "" {
		return nil, nil
	}
	var items []sessionItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: malformed cartItems metadata: %v", domain.ErrValidation, err)
	}
	lines := make([]domain.GuestCartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.GuestCartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, nil
}
