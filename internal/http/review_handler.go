package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ReviewService interface {
	List(ctx context.Context, productID string) ([]domain.Review, error)
	Create(ctx context.Context, ownerID, productID string, rating int, comment string) (*domain.Review, error)
}

type ReviewHandler struct {
	reviews ReviewService
	maxBody int64
	log     *slog.Logger
}

func NewReviewHandler(reviews ReviewService, maxBody int64, log *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, maxBody: maxBody, log: log}
}

type CreateReviewRequestDTO struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// GET /api/v1/products/{id}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ReviewsResponse{Reviews: convertReviews(reviews)})
}

// POST /api/v1/products/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	review, err := h.reviews.Create(r.Context(), userID, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertReview(*review))
}
