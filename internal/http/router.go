// Package http exposes the shop over a JSON API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Services struct {
	Users    UserService
	Catalog  CatalogService
	Cart     CartService
	Orders   OrderService
	Reviews  ReviewService
	Checkout CheckoutWorkflow
	// Webhooks is nil when no webhook secret is configured; the route is then not mounted.
	Webhooks WebhookVerifier
}

type Options struct {
	Tokens         *auth.Tokens
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	MaxBodySize    int64
	Log            *slog.Logger
}

func NewRouter(svc Services, opts Options) http.Handler {
	authH := NewAuthHandler(svc.Users, opts.MaxBodySize, opts.Log)
	productH := NewProductHandler(svc.Catalog, opts.MaxBodySize, opts.Log)
	cartH := NewCartHandler(svc.Cart, opts.MaxBodySize, opts.Log)
	ordersH := NewOrdersHandler(svc.Orders, svc.Checkout, opts.MaxBodySize, opts.Log)
	reviewH := NewReviewHandler(svc.Reviews, opts.MaxBodySize, opts.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(opts.Log.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.Compress(5))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(auth.Authenticate(opts.Tokens))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}
	if svc.Webhooks != nil {
		r.Post("/webhook", NewWebhookHandler(svc.Webhooks, svc.Checkout, opts.MaxBodySize, opts.Log).Handle)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.With(RequireAuth).Get("/profile", authH.Profile)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productH.List)
			r.Get("/count", productH.Count)
			r.Get("/{id}", productH.Get)
			r.Get("/{id}/reviews", reviewH.List)
			r.With(RequireAuth).Post("/{id}/reviews", reviewH.Create)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin))
				r.Post("/", productH.Create)
				r.Put("/{id}", productH.Update)
				r.Put("/{id}/image", productH.ReplaceImage)
				r.Delete("/{id}", productH.Delete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartH.GetCart)
				r.Post("/items", cartH.AddItem)
				r.Put("/items", cartH.UpdateItems)
				r.Put("/items/{item_id}", cartH.UpdateItem)
				r.Delete("/items/{item_id}", cartH.RemoveItem)
				r.Post("/merge", cartH.Merge)
			})

			r.Post("/checkout", ordersH.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordersH.CreateOrder)
				r.Get("/", ordersH.ListOrders)
				r.Get("/{order_id}", ordersH.GetOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))
			r.Get("/orders/latest", ordersH.LatestOrders)
			r.Get("/users/{user_id}/orders", ordersH.UserOrders)
			r.Patch("/orders/{order_id}/status", ordersH.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "azura-api")
}
