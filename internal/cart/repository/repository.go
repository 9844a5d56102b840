// Package repository persists cart lines, one MongoDB document per (owner, product).
package repository

import (
	"context"
	"fmt"

	"github.com/fjod/azura/internal/domain"
)

var ErrLineNotFound = fmt.Errorf("cart line %w", domain.ErrNotFound)

// CartRepository is what the cart service needs from storage.
type CartRepository interface {
	ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	// AddQuantity creates the (owner, product) line or increments its quantity.
	AddQuantity(ctx context.Context, ownerID, productID string, quantity int) error
	SetQuantity(ctx context.Context, ownerID, lineID string, quantity int) error
	// SetQuantities applies every update or none of them.
	SetQuantities(ctx context.Context, ownerID string, updates []domain.LineQuantity) error
	RemoveLine(ctx context.Context, ownerID, lineID string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}
