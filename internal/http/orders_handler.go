package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/checkout"
	"github.com/fjod/azura/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	Get(ctx context.Context, viewer auth.Principal, id string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	Latest(ctx context.Context, limit int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
}

type CheckoutWorkflow interface {
	Checkout(ctx context.Context, ownerID, paymentToken string) (*domain.Order, error)
	CreateOrder(ctx context.Context, ownerID string, lines []domain.GuestCartLine, paymentMethod string) (*checkout.Result, error)
	CompleteSession(ctx context.Context, sessionID string, metadata map[string]string) (*domain.Order, error)
}

type OrdersHandler struct {
	orders   OrderService
	checkout CheckoutWorkflow
	maxBody  int64
	log      *slog.Logger
}

func NewOrdersHandler(orders OrderService, workflow CheckoutWorkflow, maxBody int64, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, checkout: workflow, maxBody: maxBody, log: log}
}

type CheckoutRequestDTO struct {
	PaymentToken string `json:"payment_token"`
}

type CreateOrderRequestDTO struct {
	Items         []domain.GuestCartLine `json:"items"`
	PaymentMethod string                 `json:"payment_method"`
}

type CreateOrderResponseDTO struct {
	Order        OrderResponseDTO `json:"order"`
	ClientSecret string           `json:"client_secret"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// POST /api/v1/checkout
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.PaymentToken == "" {
		respondError(w, http.StatusBadRequest, "missing_payment_token", "payment_token is required")
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	order, err := h.checkout.Checkout(r.Context(), userID, req.PaymentToken)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertOrder(*order))
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := auth.PrincipalFrom(r.Context()).ID
	res, err := h.checkout.CreateOrder(r.Context(), userID, req.Items, req.PaymentMethod)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, CreateOrderResponseDTO{
		Order:        convertOrder(*res.Order),
		ClientSecret: res.ClientSecret,
	})
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.PrincipalFrom(r.Context()).ID
	orders, err := h.orders.ListByOwner(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(*order))
}

// GET /api/v1/admin/orders/latest
func (h *OrdersHandler) LatestOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = n
	}

	orders, err := h.orders.Latest(r.Context(), limit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

// GET /api/v1/admin/users/{user_id}/orders
func (h *OrdersHandler) UserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByOwner(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

// PATCH /api/v1/admin/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "order_id"), req.Status)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(*order))
}
