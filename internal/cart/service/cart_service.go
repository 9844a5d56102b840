// Package service implements the cart store operations on top of the repository and cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/azura/internal/cart/cache"
	"github.com/fjod/azura/internal/cart/repository"
	"github.com/fjod/azura/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProductLookup resolves a product id; unknown ids return an error wrapping domain.ErrNotFound.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products ProductLookup
	log      *slog.Logger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, products ProductLookup, log *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		log:      log.With(slog.String("component", "cart")),
	}
}

// GetCart returns the owner's cart, reading through the cache. A missing cart is an empty cart.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", slog.String("owner_id", ownerID), slog.Any("error", err))
		}

		// The version is read before storage so any write after this point voids the fill.
		version, verErr := s.cache.Version(ctx, ownerID)
		if verErr != nil {
			s.log.WarnContext(ctx, "cache version error", slog.String("owner_id", ownerID), slog.Any("error", verErr))
		}

		lines, err := s.repo.ListLines(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		cart = &domain.Cart{OwnerID: ownerID, Lines: lines}

		if verErr == nil {
			go s.fillCache(ownerID, cart, version)
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *CartService) fillCache(ownerID string, cart *domain.Cart, version int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stored, err := s.cache.SetIfVersion(ctx, ownerID, cart, version)
	if err != nil {
		s.log.Warn("cache set error", slog.String("owner_id", ownerID), slog.Any("error", err))
		return
	}
	if !stored {
		s.log.Debug("stale cache fill dropped", slog.String("owner_id", ownerID), slog.Int64("version", version))
	}
}

// fromStore builds the cart from storage without repopulating the cache, so a mutation's
// response never races its own invalidation.
func (s *CartService) fromStore(ctx context.Context, ownerID string) (*domain.Cart, error) {
	lines, err := s.repo.ListLines(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &domain.Cart{OwnerID: ownerID, Lines: lines}, nil
}

// Lines reads the owner's lines straight from storage, skipping the cache.
func (s *CartService) Lines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	return s.repo.ListLines(ctx, ownerID)
}

func (s *CartService) AddItem(ctx context.Context, ownerID, productID string, quantity int) (*domain.Cart, error) {
	if err := domain.CheckLineQuantity(quantity); err != nil {
		return nil, err
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.checkAccumulated(ctx, ownerID, map[string]int{productID: quantity}); err != nil {
		return nil, err
	}

	if err := s.repo.AddQuantity(ctx, ownerID, productID, quantity); err != nil {
		s.log.ErrorContext(ctx, "repo add item error", slog.String("owner_id", ownerID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(ownerID)
	return s.fromStore(ctx, ownerID)
}

func (s *CartService) UpdateItem(ctx context.Context, ownerID, lineID string, quantity int) (*domain.Cart, error) {
	if err := domain.CheckLineQuantity(quantity); err != nil {
		return nil, err
	}

	if err := s.repo.SetQuantity(ctx, ownerID, lineID, quantity); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerID)
	return s.fromStore(ctx, ownerID)
}

// UpdateItems validates every quantity before writing anything, then applies the batch.
func (s *CartService) UpdateItems(ctx context.Context, ownerID string, updates []domain.LineQuantity) (*domain.Cart, error) {
	for _, u := range updates {
		if u.LineID == "" {
			return nil, fmt.Errorf("%w: item id is required", domain.ErrValidation)
		}
		if err := domain.CheckLineQuantity(u.Quantity); err != nil {
			return nil, fmt.Errorf("item %s: %w", u.LineID, err)
		}
	}

	if err := s.repo.SetQuantities(ctx, ownerID, updates); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerID)
	return s.fromStore(ctx, ownerID)
}

func (s *CartService) RemoveItem(ctx context.Context, ownerID, lineID string) (*domain.Cart, error) {
	if err := s.repo.RemoveLine(ctx, ownerID, lineID); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerID)
	return s.fromStore(ctx, ownerID)
}

// MergeGuestCart folds a client-held cart into the owner's cart. Lines with a non-positive
// quantity are skipped; repeated products accumulate. Every product and every resulting
// quantity is checked before any write.
func (s *CartService) MergeGuestCart(ctx context.Context, ownerID string, guest []domain.GuestCartLine) (*domain.Cart, error) {
	merged := make(map[string]int, len(guest))
	order := make([]string, 0, len(guest))
	for _, line := range guest {
		if line.Quantity <= 0 {
			continue
		}
		if _, seen := merged[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		// both terms are capped, so the sum cannot wrap
		if err := domain.CheckLineQuantity(line.Quantity); err != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		merged[line.ProductID] += line.Quantity
		if err := domain.CheckLineQuantity(merged[line.ProductID]); err != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
	}

	for _, productID := range order {
		if _, err := s.products.Get(ctx, productID); err != nil {
			return nil, err
		}
	}
	if err := s.checkAccumulated(ctx, ownerID, merged); err != nil {
		return nil, err
	}

	for _, productID := range order {
		if err := s.repo.AddQuantity(ctx, ownerID, productID, merged[productID]); err != nil {
			s.invalidateCache(ownerID)
			return nil, err
		}
	}

	s.log.InfoContext(ctx, "merged guest cart",
		slog.String("owner_id", ownerID),
		slog.Int("guest_lines", len(guest)),
		slog.Int("merged_products", len(order)))

	s.invalidateCache(ownerID)
	return s.fromStore(ctx, ownerID)
}

// Clear deletes every line of the owner. An empty cart clears without error.
func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	if err := s.repo.DeleteByOwner(ctx, ownerID); err != nil {
		return err
	}

	s.invalidateCache(ownerID)
	return nil
}

// checkAccumulated rejects additions that would push an existing line past domain.MaxLineQuantity.
func (s *CartService) checkAccumulated(ctx context.Context, ownerID string, additions map[string]int) error {
	lines, err := s.repo.ListLines(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		add, ok := additions[l.ProductID]
		if !ok {
			continue
		}
		if err := domain.CheckLineQuantity(l.Quantity + add); err != nil {
			return fmt.Errorf("product %s: %w", l.ProductID, err)
		}
	}
	return nil
}

func (s *CartService) invalidateCache(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		s.log.Warn("cache invalidate error", slog.String("owner_id", ownerID), slog.Any("error", err))
	}
}
