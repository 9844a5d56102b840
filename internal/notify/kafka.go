package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues messages on a topic; cmd/notifier delivers them.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(msg.Kind)}}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.To), // one recipient stays on one partition
		Value:   payload,
		Headers: injectKafkaHeaders(ctx, headers),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads queued messages and delivers each through the dispatcher.
// Delivery failures are logged and the message is dropped.
type Consumer struct {
	reader     messageReader
	dispatcher Dispatcher
	log        *slog.Logger
	tracer     trace.Tracer

	// read failures back off from retryMin, doubling up to retryMax
	retryMin time.Duration
	retryMax time.Duration
}

func NewConsumer(dispatcher Dispatcher, log *slog.Logger, topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, dispatcher, log)
}

func newConsumer(reader messageReader, dispatcher Dispatcher, log *slog.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		dispatcher: dispatcher,
		log:        log.With(slog.String("component", "notify-consumer")),
		tracer:     otel.Tracer("azura/notify"),
		retryMin:   100 * time.Millisecond,
		retryMax:   5 * time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	delay := c.retryMin
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.consumeOne(ctx); err == nil {
			delay = c.retryMin
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, c.retryMax)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing reader", slog.Any("error", err))
	}
}

// consumeOne handles a single message. Only read failures are returned; a message that cannot
// be parsed or delivered is logged and dropped.
func (c *Consumer) consumeOne(ctx context.Context) error {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Error("error reading message", slog.Any("error", err))
		}
		return err
	}

	msgCtx := extractKafkaHeaders(ctx, m.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "notify.deliver")
	defer span.End()

	var msg Message
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		c.log.ErrorContext(msgCtx, "error parsing message", slog.Any("error", err))
		return nil
	}
	span.SetAttributes(attribute.String("notification.kind", msg.Kind))

	if err := c.dispatcher.Send(msgCtx, msg); err != nil {
		span.RecordError(err)
		c.log.ErrorContext(msgCtx, "failed to deliver notification",
			slog.String("notification_id", msg.ID),
			slog.String("kind", msg.Kind),
			slog.Any("error", err))
		return nil
	}
	c.log.InfoContext(msgCtx, "notification delivered",
		slog.String("notification_id", msg.ID),
		slog.String("kind", msg.Kind))
	return nil
}
