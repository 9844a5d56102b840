package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/orders/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m          sync.Mutex
	orders     map[string]*domain.Order
	latestArgs []int
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: map[string]*domain.Order{}}
}

func (r *mockRepository) Create(_ context.Context, o *domain.Order) error {
	r.m.Lock()
	defer r.m.Unlock()
	o.ID = strconv.Itoa(len(r.orders) + 1)
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *mockRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *mockRepository) GetByPaymentReference(_ context.Context, ref string) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for _, o := range r.orders {
		if ref != "" && o.PaymentReference == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (r *mockRepository) ListByOwner(_ context.Context, owner string) ([]domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.OwnerID == owner {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *mockRepository) Latest(_ context.Context, limit int) ([]domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.latestArgs = append(r.latestArgs, limit)
	return nil, nil
}

func (r *mockRepository) HasPurchased(context.Context, string, string, ...domain.OrderStatus) (bool, error) {
	return false, nil
}

func (r *mockRepository) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, domain.OrderStatus, error) {
	r.m.Lock()
	defer r.m.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, "", repository.ErrOrderNotFound
	}
	prev := o.Status
	o.Status = status
	cp := *o
	return &cp, prev, nil
}

type mockReviews struct {
	m      sync.Mutex
	orders []domain.Order
}

func (m *mockReviews) ReviewRequest(_ context.Context, o domain.Order) {
	m.m.Lock()
	defer m.m.Unlock()
	m.orders = append(m.orders, o)
}

func (m *mockReviews) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.orders)
}

func newSUT() (*OrderService, *mockRepository, *mockReviews) {
	repo := newMockRepository()
	reviews := &mockReviews{}
	return NewOrderService(repo, reviews, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, reviews
}

func seedOrder(t *testing.T, svc *OrderService, owner string, status domain.OrderStatus) *domain.Order {
	o := &domain.Order{
		OwnerID: owner,
		Status:  status,
		Items:   []domain.OrderItem{{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10.00")}},
	}
	require.NoError(t, svc.Create(context.Background(), o))
	return o
}

func TestCreate_ComputesTotal(t *testing.T) {
	svc, repo, _ := newSUT()
	o := &domain.Order{
		OwnerID: "owner-1",
		Status:  domain.OrderStatusCompleted,
		Total:   decimal.RequireFromString("999"), // ignored
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 1, Price: decimal.RequireFromString("5.00")},
			{ProductID: "p2", Quantity: 3, Price: decimal.RequireFromString("2.00")},
		},
	}
	require.NoError(t, svc.Create(context.Background(), o))
	assert.True(t, decimal.RequireFromString("11.00").Equal(repo.orders[o.ID].Total))
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newSUT()

	err := svc.Create(context.Background(), &domain.Order{OwnerID: "owner-1"})
	require.ErrorIs(t, err, domain.ErrValidation)

	err = svc.Create(context.Background(), &domain.Order{
		OwnerID: "owner-1",
		Items:   []domain.OrderItem{{ProductID: "p1", Quantity: 0, Price: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	err = svc.Create(context.Background(), &domain.Order{
		OwnerID: "owner-1",
		Items:   []domain.OrderItem{{ProductID: "p1", Quantity: domain.MaxLineQuantity + 1, Price: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestGet_OwnershipEnforced(t *testing.T) {
	svc, _, _ := newSUT()
	o := seedOrder(t, svc, "owner-1", domain.OrderStatusCompleted)
	ctx := context.Background()

	_, err := svc.Get(ctx, auth.Principal{ID: "owner-1", Role: domain.RoleUser}, o.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, auth.Principal{ID: "admin-1", Role: domain.RoleAdmin}, o.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, auth.Principal{ID: "intruder", Role: domain.RoleUser}, o.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Get(ctx, auth.Principal{ID: "owner-1"}, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLatest_Limits(t *testing.T) {
	svc, repo, _ := newSUT()

	for _, limit := range []int{0, -3, 7, 1000} {
		_, err := svc.Latest(context.Background(), limit)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{5, 5, 7, 100}, repo.latestArgs)
}

func TestUpdateStatus_CaseInsensitiveAndCanonical(t *testing.T) {
	svc, _, _ := newSUT()
	o := seedOrder(t, svc, "owner-1", domain.OrderStatusPending)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	svc, repo, _ := newSUT()
	o := seedOrder(t, svc, "owner-1", domain.OrderStatusPending)

	_, err := svc.UpdateStatus(context.Background(), o.ID, "teleported")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.OrderStatusPending, repo.orders[o.ID].Status)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _, _ := newSUT()

	_, err := svc.UpdateStatus(context.Background(), "missing", "shipped")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_DeliveredSendsOneReviewRequest(t *testing.T) {
	svc, _, reviews := newSUT()
	o := seedOrder(t, svc, "owner-1", domain.OrderStatusShipped)

	_, err := svc.UpdateStatus(context.Background(), o.ID, "delivered")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), o.ID, "Delivered")
	require.NoError(t, err)

	require.Equal(t, 1, reviews.count())
	reviews.m.Lock()
	defer reviews.m.Unlock()
	assert.Equal(t, "owner-1", reviews.orders[0].OwnerID)
}

func TestUpdateStatus_PermissiveTransitions(t *testing.T) {
	svc, _, reviews := newSUT()
	o := seedOrder(t, svc, "owner-1", domain.OrderStatusCancelled)

	for _, s := range []string{"completed", "pending", "processing", "cancelled"} {
		updated, err := svc.UpdateStatus(context.Background(), o.ID, s)
		require.NoError(t, err)
		assert.Equal(t, s, updated.Status.String())
	}
	assert.Zero(t, reviews.count())
}
