package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/azura/internal/catalog"
	"github.com/fjod/azura/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CatalogService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Count(ctx context.Context, filter domain.ProductFilter) (int64, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in catalog.NewProduct) (*domain.Product, error)
	Update(ctx context.Context, id string, u domain.ProductUpdate) (*domain.Product, error)
	ReplaceImage(ctx context.Context, id string, image io.Reader) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductHandler struct {
	catalog CatalogService
	maxBody int64
	log     *slog.Logger
}

func NewProductHandler(catalog CatalogService, maxBody int64, log *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, maxBody: maxBody, log: log}
}

type CreateProductRequestDTO struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type UpdateProductRequestDTO struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Approved    *bool            `json:"approved"`
}

func filterFromQuery(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	var err error
	if v := q.Get("page"); v != "" {
		if f.Page, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("%w: page must be an integer", domain.ErrValidation)
		}
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("%w: limit must be an integer", domain.ErrValidation)
		}
	}
	return f.Normalized(), nil
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, convertProduct(p))
	}
	respondJSON(w, http.StatusOK, ProductsResponse{Products: dtos, Page: filter.Page, Limit: filter.Limit})
}

// GET /api/v1/products/count
func (h *ProductHandler) Count(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	n, err := h.catalog.Count(r.Context(), filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(*p))
}

// POST /api/v1/products accepts JSON, or multipart/form-data with an optional "image" file.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewProduct

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
		if err := r.ParseMultipartForm(h.maxBody); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		if in, err = newProductFromForm(r); err != nil {
			handleError(w, r, h.log, err)
			return
		}
		if file, ok := formImage(r); ok {
			defer file.Close()
			in.Image = file
		}
	} else {
		var req CreateProductRequestDTO
		if !decodeJSON(w, r, h.maxBody, &req) {
			return
		}
		in = catalog.NewProduct{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Price:       req.Price,
			Stock:       req.Stock,
		}
	}

	p, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertProduct(*p))
}

// PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	p, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), domain.ProductUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Approved:    req.Approved,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(*p))
}

// PUT /api/v1/products/{id}/image
func (h *ProductHandler) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, ok := formImage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_image", "image file is required")
		return
	}
	defer file.Close()

	p, err := h.catalog.ReplaceImage(r.Context(), chi.URLParam(r, "id"), file)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(*p))
}

// DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func formImage(r *http.Request) (multipart.File, bool) {
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, false
	}
	return file, true
}

func newProductFromForm(r *http.Request) (catalog.NewProduct, error) {
	in := catalog.NewProduct{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}
	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return in, fmt.Errorf("%w: price must be a decimal number", domain.ErrValidation)
	}
	in.Price = price
	if v := r.FormValue("stock"); v != "" {
		if in.Stock, err = strconv.Atoi(v); err != nil {
			return in, fmt.Errorf("%w: stock must be an integer", domain.ErrValidation)
		}
	}
	return in, nil
}
