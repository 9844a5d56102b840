// Package catalog serves product records and keeps their hosted images in step.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fjod/azura/internal/domain"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Count(ctx context.Context, filter domain.ProductFilter) (int64, error)
	Update(ctx context.Context, id string, u domain.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

type ImageStore interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
	DeleteByURL(ctx context.Context, imageURL string) error
}

type NewProduct struct {
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	// Image is optional; when set it is uploaded and its URL stored on the product.
	Image io.Reader
}

type Service struct {
	repo   Repository
	images ImageStore
	log    *slog.Logger
}

// NewService wires the catalog. images may be nil, in which case uploads are rejected and
// deletes skip image cleanup.
func NewService(repo Repository, images ImageStore, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		images: images,
		log:    log.With(slog.String("component", "catalog")),
	}
}

func (s *Service) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, filter.Normalized())
}

func (s *Service) Count(ctx context.Context, filter domain.ProductFilter) (int64, error) {
	return s.repo.Count(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	return s.repo.GetMany(ctx, ids)
}

func (s *Service) Create(ctx context.Context, in NewProduct) (*domain.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Category == "" {
		return nil, fmt.Errorf("%w: missing required fields: title and category", domain.ErrValidation)
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := validateStock(in.Stock); err != nil {
		return nil, err
	}

	p := &domain.Product{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
	}

	if in.Image != nil {
		if s.images == nil {
			return nil, fmt.Errorf("%w: image uploads are not configured", domain.ErrValidation)
		}
		url, err := s.images.Upload(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("upload product image: %w", err)
		}
		p.ImageURL = url
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if p.ImageURL != "" {
			s.deleteImage(ctx, p.ImageURL)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "product created", slog.String("product_id", p.ID))
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, u domain.ProductUpdate) (*domain.Product, error) {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}
	if u.Price != nil {
		if err := validatePrice(*u.Price); err != nil {
			return nil, err
		}
	}
	if u.Stock != nil {
		if err := validateStock(*u.Stock); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "product updated", slog.String("product_id", id))
	return p, nil
}

// ReplaceImage uploads a new image for the product, points the product at it and then
// removes the previous image.
func (s *Service) ReplaceImage(ctx context.Context, id string, image io.Reader) (*domain.Product, error) {
	if s.images == nil {
		return nil, fmt.Errorf("%w: image uploads are not configured", domain.ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("upload product image: %w", err)
	}

	updated, err := s.repo.Update(ctx, id, domain.ProductUpdate{ImageURL: &url})
	if err != nil {
		s.deleteImage(ctx, url)
		return nil, err
	}

	if current.ImageURL != "" {
		s.deleteImage(ctx, current.ImageURL)
	}
	return updated, nil
}

// Delete removes the product, then its hosted image. Image cleanup failures are logged only.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if p.ImageURL != "" {
		s.deleteImage(ctx, p.ImageURL)
	}
	s.log.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

func (s *Service) deleteImage(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.DeleteByURL(ctx, url); err != nil {
		s.log.WarnContext(ctx, "failed to delete product image", slog.String("image_url", url), slog.Any("error", err))
	}
}

func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return fmt.Errorf("%w: price must be greater than 0", domain.ErrValidation)
	}
	return nil
}

func validateStock(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: stock cannot be negative", domain.ErrValidation)
	}
	return nil
}
