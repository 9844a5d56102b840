package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/orders/repository"
	"github.com/fjod/azura/internal/payment"
	"github.com/shopspring/decimal"
)

type mockCart struct {
	m        sync.Mutex
	lines    map[string][]domain.CartLine
	clearErr error
	linesErr error
}

func newMockCart() *mockCart {
	return &mockCart{lines: map[string][]domain.CartLine{}}
}

func (c *mockCart) add(owner, productID string, qty int) {
	c.m.Lock()
	defer c.m.Unlock()
	c.lines[owner] = append(c.lines[owner], domain.CartLine{
		ID:        fmt.Sprintf("line-%d", len(c.lines[owner])+1),
		OwnerID:   owner,
		ProductID: productID,
		Quantity:  qty,
	})
}

func (c *mockCart) Lines(_ context.Context, owner string) ([]domain.CartLine, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.linesErr != nil {
		return nil, c.linesErr
	}
	return append([]domain.CartLine(nil), c.lines[owner]...), nil
}

func (c *mockCart) Clear(_ context.Context, owner string) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	delete(c.lines, owner)
	return nil
}

func (c *mockCart) count(owner string) int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.lines[owner])
}

type mockCatalog struct {
	m        sync.Mutex
	products map[string]domain.Product
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: map[string]domain.Product{}}
}

func (c *mockCatalog) put(id, price string) {
	c.m.Lock()
	defer c.m.Unlock()
	c.products[id] = domain.Product{ID: id, Title: id, Price: decimal.RequireFromString(price)}
}

func (c *mockCatalog) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockLedger struct {
	m         sync.Mutex
	orders    []*domain.Order
	createErr error
}

func (l *mockLedger) Create(_ context.Context, o *domain.Order) error {
	l.m.Lock()
	defer l.m.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	if o.PaymentReference != "" {
		for _, existing := range l.orders {
			if existing.PaymentReference == o.PaymentReference {
				return repository.ErrDuplicatePayment
			}
		}
	}
	o.ID = fmt.Sprintf("order-%d", len(l.orders)+1)
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	l.orders = append(l.orders, &cp)
	return nil
}

func (l *mockLedger) GetByPaymentReference(_ context.Context, ref string) (*domain.Order, error) {
	l.m.Lock()
	defer l.m.Unlock()
	for _, o := range l.orders {
		if o.PaymentReference == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (l *mockLedger) all() []*domain.Order {
	l.m.Lock()
	defer l.m.Unlock()
	return append([]*domain.Order(nil), l.orders...)
}

type mockNotifier struct {
	m      sync.Mutex
	orders []domain.Order
}

func (n *mockNotifier) OrderConfirmation(_ context.Context, o domain.Order) {
	n.m.Lock()
	defer n.m.Unlock()
	n.orders = append(n.orders, o)
}

func (n *mockNotifier) count() int {
	n.m.Lock()
	defer n.m.Unlock()
	return len(n.orders)
}

type mockAuthority struct {
	m       sync.Mutex
	charges []payment.Charge
	auth    payment.Authorization
	err     error
}

func (a *mockAuthority) Authorize(_ context.Context, c payment.Charge) (payment.Authorization, error) {
	a.m.Lock()
	defer a.m.Unlock()
	a.charges = append(a.charges, c)
	if a.err != nil {
		return payment.Authorization{}, a.err
	}
	return a.auth, nil
}

func (a *mockAuthority) calls() int {
	a.m.Lock()
	defer a.m.Unlock()
	return len(a.charges)
}

type mockRecorder struct {
	m        sync.Mutex
	outcomes []string
}

func (r *mockRecorder) CheckoutOutcome(trigger, outcome string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.outcomes = append(r.outcomes, trigger+":"+outcome)
}

type fixture struct {
	workflow *Workflow
	cart     *mockCart
	catalog  *mockCatalog
	ledger   *mockLedger
	notifier *mockNotifier
	deferred *mockAuthority
	recorder *mockRecorder
}

func newFixture() *fixture {
	f := &fixture{
		cart:     newMockCart(),
		catalog:  newMockCatalog(),
		ledger:   &mockLedger{},
		notifier: &mockNotifier{},
		deferred: &mockAuthority{auth: payment.Authorization{Reference: "pi_1", ClientSecret: "pi_1_secret"}},
		recorder: &mockRecorder{},
	}
	f.workflow = NewWorkflow(Deps{
		Cart:     f.cart,
		Catalog:  f.catalog,
		Ledger:   f.ledger,
		Notifier: f.notifier,
		Direct:   payment.NewTokenAuthority(),
		Deferred: f.deferred,
		Recorder: f.recorder,
		Currency: "usd",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

var errStoreDown = errors.New("store down")
