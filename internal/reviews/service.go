// Package reviews lets buyers rate the products they received.
package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/azura/internal/domain"
)

const maxCommentLength = 2000

type Repository interface {
	Create(ctx context.Context, r *domain.Review) error
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
}

// ProductLookup resolves a product id; unknown ids return an error wrapping domain.ErrNotFound.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type PurchaseChecker interface {
	HasPurchased(ctx context.Context, ownerID, productID string, statuses ...domain.OrderStatus) (bool, error)
}

type UserLookup interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

var ErrNotPurchased = fmt.Errorf("%w: you must purchase this product before leaving a review", domain.ErrForbidden)

type Service struct {
	repo      Repository
	products  ProductLookup
	purchases PurchaseChecker
	users     UserLookup
	log       *slog.Logger
}

func NewService(repo Repository, products ProductLookup, purchases PurchaseChecker, users UserLookup, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		purchases: purchases,
		users:     users,
		log:       log.With(slog.String("component", "reviews")),
	}
}

// List returns the reviews of an existing product, newest first.
func (s *Service) List(ctx context.Context, productID string) ([]domain.Review, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}

// Create records the owner's review. The product must exist and the owner must have a
// completed or delivered order containing it.
func (s *Service) Create(ctx context.Context, ownerID, productID string, rating int, comment string) (*domain.Review, error) {
	comment = strings.TrimSpace(comment)
	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, domain.MinRating, domain.MaxRating)
	}
	if comment == "" {
		return nil, fmt.Errorf("%w: comment is required", domain.ErrValidation)
	}
	if len(comment) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment must not exceed %d characters", domain.ErrValidation, maxCommentLength)
	}

	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}

	purchased, err := s.purchases.HasPurchased(ctx, ownerID, productID, domain.ReviewEligibleStatuses...)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, ErrNotPurchased
	}

	review := &domain.Review{
		ProductID: productID,
		UserID:    ownerID,
		Rating:    rating,
		Comment:   comment,
	}
	if u, err := s.users.Get(ctx, ownerID); err == nil {
		review.AuthorName = u.Name
	} else {
		s.log.WarnContext(ctx, "review author lookup failed", slog.String("user_id", ownerID), slog.Any("error", err))
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Int("rating", rating))
	return review, nil
}
