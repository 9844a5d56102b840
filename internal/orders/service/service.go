// Package service exposes the order ledger operations.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/orders/repository"
)

const (
	DefaultLatestLimit = 5
	MaxLatestLimit     = 100
)

type ReviewRequester interface {
	ReviewRequest(ctx context.Context, order domain.Order)
}

type OrderService struct {
	repo    repository.OrderRepository
	reviews ReviewRequester
	log     *slog.Logger
}

func NewOrderService(repo repository.OrderRepository, reviews ReviewRequester, log *slog.Logger) *OrderService {
	return &OrderService{
		repo:    repo,
		reviews: reviews,
		log:     log.With(slog.String("component", "orders")),
	}
}

// Create validates the snapshot and stores it. The total is recomputed from the items.
func (s *OrderService) Create(ctx context.Context, order *domain.Order) error {
	if order.OwnerID == "" {
		return fmt.Errorf("%w: order has no owner", domain.ErrValidation)
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("%w: order has no items", domain.ErrValidation)
	}
	for _, it := range order.Items {
		if err := domain.CheckLineQuantity(it.Quantity); err != nil {
			return fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: negative price for product %s", domain.ErrValidation, it.ProductID)
		}
	}
	order.Total = domain.OrderTotal(order.Items)

	if err := s.repo.Create(ctx, order); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("owner_id", order.OwnerID),
		slog.String("status", order.Status.String()),
		slog.String("total", order.Total.String()))
	return nil
}

// Get returns the order if the viewer owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, viewer auth.Principal, id string) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != viewer.ID && !viewer.IsAdmin() {
		return nil, fmt.Errorf("%w to view order %s", domain.ErrForbidden, id)
	}
	return order, nil
}

func (s *OrderService) GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	return s.repo.GetByPaymentReference(ctx, reference)
}

func (s *OrderService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Latest returns the most recent orders across all owners. limit <= 0 means the default.
func (s *OrderService) Latest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	if limit > MaxLatestLimit {
		limit = MaxLatestLimit
	}
	return s.repo.Latest(ctx, limit)
}

// UpdateStatus accepts any canonical status regardless of the current one. Moving an order into
// delivered sends the owner one review request.
func (s *OrderService) UpdateStatus(ctx context.Context, id, rawStatus string) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	order, previous, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("from", previous.String()),
		slog.String("to", status.String()))

	if status == domain.OrderStatusDelivered && previous != domain.OrderStatusDelivered {
		s.reviews.ReviewRequest(ctx, *order)
	}
	return order, nil
}
