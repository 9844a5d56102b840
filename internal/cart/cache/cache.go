// Package cache holds the per-owner cart cache.
package cache

import (
	"context"
	"errors"

	"github.com/fjod/azura/internal/domain"
)

// CartCache is a read-through cache guarded by a per-owner version. Delete bumps the version,
// and SetIfVersion only stores a cart read under the version that is still current, so a fill
// that raced a write never lands.
type CartCache interface {
	Get(ctx context.Context, ownerID string) (*domain.Cart, error)
	Version(ctx context.Context, ownerID string) (int64, error)
	SetIfVersion(ctx context.Context, ownerID string, cart *domain.Cart, version int64) (bool, error)
	Delete(ctx context.Context, ownerID string) error
}

var ErrCacheMiss = errors.New("cache miss")
