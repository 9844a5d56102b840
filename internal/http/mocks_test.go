package http

import (
	"context"
	"errors"
	"io"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/catalog"
	"github.com/fjod/azura/internal/checkout"
	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/payment"
)

type mockUsers struct {
	user  *domain.User
	token string
	err   error
}

func (m *mockUsers) Register(_ context.Context, name, email, _ string) (*domain.User, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return &domain.User{ID: "u-new", Name: name, Email: email, Role: domain.RoleUser}, m.token, nil
}

func (m *mockUsers) Login(context.Context, string, string) (*domain.User, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.token, nil
}

func (m *mockUsers) Get(_ context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u := *m.user
	u.ID = id
	return &u, nil
}

type mockCatalog struct {
	products []domain.Product
	created  *catalog.NewProduct
	image    []byte
	filter   domain.ProductFilter
	err      error
}

func (m *mockCatalog) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	m.filter = f
	return m.products, m.err
}

func (m *mockCatalog) Count(_ context.Context, f domain.ProductFilter) (int64, error) {
	m.filter = f
	return int64(len(m.products)), m.err
}

func (m *mockCatalog) Get(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (m *mockCatalog) Create(_ context.Context, in catalog.NewProduct) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &in
	if in.Image != nil {
		m.image, _ = io.ReadAll(in.Image)
	}
	return &domain.Product{ID: "p-new", Title: in.Title, Category: in.Category, Price: in.Price, Stock: in.Stock}, nil
}

func (m *mockCatalog) Update(ctx context.Context, id string, _ domain.ProductUpdate) (*domain.Product, error) {
	return m.Get(ctx, id)
}

func (m *mockCatalog) ReplaceImage(ctx context.Context, id string, r io.Reader) (*domain.Product, error) {
	m.image, _ = io.ReadAll(r)
	return m.Get(ctx, id)
}

func (m *mockCatalog) Delete(context.Context, string) error {
	return m.err
}

type mockCart struct {
	owner   string
	added   []domain.GuestCartLine
	merged  []domain.GuestCartLine
	updates []domain.LineQuantity
	removed string
	err     error
}

func (m *mockCart) cart(owner string) *domain.Cart {
	return &domain.Cart{OwnerID: owner}
}

func (m *mockCart) GetCart(_ context.Context, owner string) (*domain.Cart, error) {
	m.owner = owner
	return m.cart(owner), m.err
}

func (m *mockCart) AddItem(_ context.Context, owner, productID string, qty int) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.owner = owner
	m.added = append(m.added, domain.GuestCartLine{ProductID: productID, Quantity: qty})
	return m.cart(owner), nil
}

func (m *mockCart) UpdateItem(_ context.Context, owner, lineID string, qty int) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updates = append(m.updates, domain.LineQuantity{LineID: lineID, Quantity: qty})
	return m.cart(owner), nil
}

func (m *mockCart) UpdateItems(_ context.Context, owner string, updates []domain.LineQuantity) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updates = append(m.updates, updates...)
	return m.cart(owner), nil
}

func (m *mockCart) RemoveItem(_ context.Context, owner, lineID string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.removed = lineID
	return m.cart(owner), nil
}

func (m *mockCart) MergeGuestCart(_ context.Context, owner string, guest []domain.GuestCartLine) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.merged = guest
	return m.cart(owner), nil
}

type mockOrders struct {
	order       *domain.Order
	latestLimit int
	listedFor   string
	status      string
	err         error
}

func (m *mockOrders) Get(_ context.Context, viewer auth.Principal, _ string) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.order.OwnerID != viewer.ID && !viewer.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return m.order, nil
}

func (m *mockOrders) ListByOwner(_ context.Context, owner string) ([]domain.Order, error) {
	m.listedFor = owner
	return []domain.Order{*m.order}, m.err
}

func (m *mockOrders) Latest(_ context.Context, limit int) ([]domain.Order, error) {
	m.latestLimit = limit
	return []domain.Order{*m.order}, m.err
}

func (m *mockOrders) UpdateStatus(_ context.Context, _ string, status string) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.status = status
	o := *m.order
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

type mockReviews struct {
	reviews []domain.Review
	created []domain.Review
	err     error
}

func (m *mockReviews) List(_ context.Context, productID string) ([]domain.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Review
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReviews) Create(_ context.Context, owner, productID string, rating int, comment string) (*domain.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	r := domain.Review{ID: "r1", ProductID: productID, UserID: owner, Rating: rating, Comment: comment}
	m.created = append(m.created, r)
	return &r, nil
}

type mockWorkflow struct {
	order     *domain.Order
	secret    string
	err       error
	token     string
	lines     []domain.GuestCartLine
	sessionID string
	sessionMD map[string]string
}

func (m *mockWorkflow) Checkout(_ context.Context, _ string, token string) (*domain.Order, error) {
	m.token = token
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockWorkflow) CreateOrder(_ context.Context, _ string, lines []domain.GuestCartLine, _ string) (*checkout.Result, error) {
	m.lines = lines
	if m.err != nil {
		return nil, m.err
	}
	return &checkout.Result{Order: m.order, ClientSecret: m.secret}, nil
}

func (m *mockWorkflow) CompleteSession(_ context.Context, sessionID string, md map[string]string) (*domain.Order, error) {
	m.sessionID = sessionID
	m.sessionMD = md
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type mockVerifier struct {
	event payment.Event
	err   error
}

func (m *mockVerifier) Verify([]byte, string) (payment.Event, error) {
	return m.event, m.err
}

var errUnexpected = errors.New("mongo: connection refused")
