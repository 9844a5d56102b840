package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/azura/internal/config"
	"github.com/fjod/azura/internal/logger"
	"github.com/fjod/azura/internal/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// The notifier drains the notifications topic and delivers each message over SMTP.
func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	dispatcher, err := notify.NewSMTPDispatcher(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		log.Error("failed to configure SMTP", slog.Any("error", err))
		os.Exit(1)
	}

	consumer := notify.NewConsumer(dispatcher, log, cfg.Kafka.NotificationsTopic, cfg.Kafka.NotifierGroupID, cfg.Kafka.Brokers...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("notifier started",
		slog.String("topic", cfg.Kafka.NotificationsTopic),
		slog.String("group_id", cfg.Kafka.NotifierGroupID))
	consumer.Run(ctx)

	consumer.Close()
	log.Info("notifier stopped")
}
