// Package repository stores orders. MongoDB is the default backend; PostgreSQL is available
// for deployments that keep the ledger in a relational store.
package repository

import (
	"context"
	"fmt"

	"github.com/fjod/azura/internal/domain"
)

var (
	ErrOrderNotFound    = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrDuplicatePayment = fmt.Errorf("order for this payment %w", domain.ErrConflict)
)

type OrderRepository interface {
	// Create stores the order with its items in one write and fills ID and timestamps.
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	// GetByPaymentReference finds the order committed for an authority reference.
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	Latest(ctx context.Context, limit int) ([]domain.Order, error)
	// HasPurchased reports whether the owner has an order containing the product in one of
	// the given statuses.
	HasPurchased(ctx context.Context, ownerID, productID string, statuses ...domain.OrderStatus) (bool, error)
	// UpdateStatus sets the status and returns the updated order with the status it replaced.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, domain.OrderStatus, error)
}
