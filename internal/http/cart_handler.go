package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	AddItem(ctx context.Context, ownerID, productID string, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, ownerID, lineID string, quantity int) (*domain.Cart, error)
	UpdateItems(ctx context.Context, ownerID string, updates []domain.LineQuantity) (*domain.Cart, error)
	RemoveItem(ctx context.Context, ownerID, lineID string) (*domain.Cart, error)
	MergeGuestCart(ctx context.Context, ownerID string, guest []domain.GuestCartLine) (*domain.Cart, error)
}

type CartHandler struct {
	cart    CartService
	maxBody int64
	log     *slog.Logger
}

func NewCartHandler(cart CartService, maxBody int64, log *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, maxBody: maxBody, log: log}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type MergeCartRequestDTO struct {
	Items []domain.GuestCartLine `json:"items"`
}

type UpdateItemsRequestDTO struct {
	Items []domain.LineQuantity `json:"items"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := auth.PrincipalFrom(r.Context()).ID
	cart, err := h.cart.GetCart(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	cart, err := h.cart.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertCart(cart))
}

// PUT /api/v1/cart/items/{item_id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	cart, err := h.cart.UpdateItem(r.Context(), userID, chi.URLParam(r, "item_id"), req.Quantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// PUT /api/v1/cart/items
func (h *CartHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemsRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	cart, err := h.cart.UpdateItems(r.Context(), userID, req.Items)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := auth.PrincipalFrom(r.Context()).ID
	cart, err := h.cart.RemoveItem(r.Context(), userID, chi.URLParam(r, "item_id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/merge
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeCartRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	cart, err := h.cart.MergeGuestCart(r.Context(), userID, req.Items)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}
