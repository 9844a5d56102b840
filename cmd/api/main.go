package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/cart/cache"
	cartrepo "github.com/fjod/azura/internal/cart/repository"
	cartsvc "github.com/fjod/azura/internal/cart/service"
	"github.com/fjod/azura/internal/catalog"
	"github.com/fjod/azura/internal/checkout"
	"github.com/fjod/azura/internal/config"
	h "github.com/fjod/azura/internal/http"
	"github.com/fjod/azura/internal/images"
	"github.com/fjod/azura/internal/logger"
	"github.com/fjod/azura/internal/metrics"
	"github.com/fjod/azura/internal/mongodb"
	"github.com/fjod/azura/internal/notify"
	ordersrepo "github.com/fjod/azura/internal/orders/repository"
	orderssvc "github.com/fjod/azura/internal/orders/service"
	"github.com/fjod/azura/internal/payment"
	"github.com/fjod/azura/internal/reviews"
	"github.com/fjod/azura/internal/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB
	db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		fatal(log, "failed to connect to MongoDB", err)
	}
	defer mongodb.Disconnect(context.Background(), db)
	log.Info("connected to MongoDB", slog.String("database", cfg.Mongo.Database))

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		fatal(log, "redis connection failed", err)
	}

	// Catalog
	productRepo := catalog.NewMongoRepository(db)
	if err := productRepo.CreateIndexes(ctx); err != nil {
		fatal(log, "failed to create product indexes", err)
	}
	var imageStore catalog.ImageStore
	if cfg.Cloudinary.CloudName != "" {
		store, err := images.NewCloudinaryStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			fatal(log, "failed to configure Cloudinary", err)
		}
		imageStore = store
	} else {
		log.Warn("CLOUDINARY_CLOUD_NAME not set, product image uploads disabled")
	}
	catalogService := catalog.NewService(productRepo, imageStore, log)

	// Users
	userRepo := users.NewMongoRepository(db)
	if err := userRepo.CreateIndexes(ctx); err != nil {
		fatal(log, "failed to create user indexes", err)
	}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	userService := users.NewService(userRepo, tokens, log)

	// Cart
	cartRepo := cartrepo.NewMongoRepository(db)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		fatal(log, "failed to create cart indexes", err)
	}
	cartService := cartsvc.NewCartService(cartRepo, cache.NewRedisCache(redisClient), catalogService, log)

	// Orders
	orderRepo, closeOrders, err := openOrderStore(ctx, cfg, db)
	if err != nil {
		fatal(log, "failed to open order store", err)
	}
	defer closeOrders()

	// Notifications
	dispatcher, closeDispatcher, err := openDispatcher(cfg)
	if err != nil {
		fatal(log, "failed to configure notifications", err)
	}
	defer closeDispatcher()

	serverMetrics := metrics.NewServerMetrics(prometheus.DefaultRegisterer, "api")
	notifier := notify.NewNotifier(dispatcher, userService, catalogService, serverMetrics, cfg.FrontendURL, log)
	orderService := orderssvc.NewOrderService(orderRepo, notifier, log)

	// Reviews
	reviewRepo := reviews.NewMongoRepository(db)
	if err := reviewRepo.CreateIndexes(ctx); err != nil {
		fatal(log, "failed to create review indexes", err)
	}
	reviewService := reviews.NewService(reviewRepo, catalogService, orderRepo, userService, log)

	// Payments
	var deferred payment.Authority
	if cfg.Stripe.SecretKey != "" {
		deferred = payment.NewBreaker("stripe", payment.NewStripeAuthority(cfg.Stripe.SecretKey), cfg.PaymentTimeout, log)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, deferred payments disabled")
	}
	var webhooks h.WebhookVerifier
	if cfg.Stripe.WebhookSecret != "" {
		webhooks = payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
	}

	workflow := checkout.NewWorkflow(checkout.Deps{
		Cart:     cartService,
		Catalog:  catalogService,
		Ledger:   orderService,
		Notifier: notifier,
		Direct:   payment.NewBreaker("token", payment.NewTokenAuthority(), cfg.PaymentTimeout, log),
		Deferred: deferred,
		Recorder: serverMetrics,
		Currency: cfg.Currency,
	}, log)

	router := h.NewRouter(h.Services{
		Users:    userService,
		Catalog:  catalogService,
		Cart:     cartService,
		Orders:   orderService,
		Reviews:  reviewService,
		Checkout: workflow,
		Webhooks: webhooks,
	}, h.Options{
		Tokens:         tokens,
		Metrics:        serverMetrics,
		Gatherer:       prometheus.DefaultGatherer,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodySize:    cfg.MaxRequestBodySize,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("API starting", slog.String("port", cfg.HTTPPort), slog.String("order_store", cfg.OrderStore), slog.String("notify_transport", cfg.NotifyTransport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		log.Warn("pending notifications abandoned", slog.Any("error", err))
	}
	log.Info("server exited")
}

func openOrderStore(ctx context.Context, cfg *config.Config, db *mongo.Database) (ordersrepo.OrderRepository, func(), error) {
	if cfg.OrderStore == "postgres" {
		cred := &ordersrepo.Credentials{
			Host:              cfg.Postgres.Host,
			Port:              cfg.Postgres.Port,
			User:              cfg.Postgres.User,
			Password:          cfg.Postgres.Password,
			DBName:            cfg.Postgres.DBName,
			MigrationsDirPath: cfg.Postgres.MigrationsPath,
		}
		repo, err := ordersrepo.NewPostgresRepository(cred)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(cred); err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	}

	repo := ordersrepo.NewMongoRepository(db)
	if err := repo.CreateIndexes(ctx); err != nil {
		return nil, nil, err
	}
	return repo, func() {}, nil
}

func openDispatcher(cfg *config.Config) (notify.Dispatcher, func(), error) {
	if cfg.NotifyTransport == "kafka" {
		p := notify.NewKafkaPublisher(cfg.Kafka.NotificationsTopic, cfg.Kafka.Brokers...)
		return p, func() { p.Close() }, nil
	}

	d, err := notify.NewSMTPDispatcher(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return nil, nil, err
	}
	return d, func() {}, nil
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
