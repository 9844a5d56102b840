package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

type queueReader struct {
	msgs []kafka.Message
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *queueReader) Close() error { return nil }

// failingReader fails every read until recoverAfter reads have failed, then serves msgs.
type failingReader struct {
	m            sync.Mutex
	reads        int
	recoverAfter int
	queue        queueReader
}

func (r *failingReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.m.Lock()
	r.reads++
	failing := r.recoverAfter < 0 || r.reads <= r.recoverAfter
	r.m.Unlock()
	if failing {
		return kafka.Message{}, errors.New("broker unreachable")
	}
	return r.queue.ReadMessage(ctx)
}

func (r *failingReader) Close() error { return nil }

func (r *failingReader) count() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reads
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaPublisher_PropagatesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &captureWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Send(ctx, Message{ID: "m1", Kind: KindReviewRequest, To: "ada@example.com"}))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ada@example.com", string(w.msgs[0].Key))

	var decoded Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "m1", decoded.ID)

	extracted := trace.SpanContextFromContext(extractKafkaHeaders(context.Background(), w.msgs[0].Headers))
	assert.Equal(t, traceID, extracted.TraceID())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &captureWriter{err: errors.New("broker down")}}

	err := p.Send(context.Background(), Message{To: "ada@example.com"})
	require.ErrorContains(t, err, "broker down")
}

func TestConsumer_DeliversAndSkipsBadPayloads(t *testing.T) {
	good, err := json.Marshal(Message{ID: "m1", Kind: KindOrderConfirmation, To: "ada@example.com"})
	require.NoError(t, err)
	reader := &queueReader{msgs: []kafka.Message{{Value: []byte("{not json")}, {Value: good}}}
	d := &recordingDispatcher{}
	c := newConsumer(reader, d, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(d.messages()) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "m1", d.messages()[0].ID)
}

func TestConsumer_BacksOffOnReadErrors(t *testing.T) {
	reader := &failingReader{recoverAfter: -1}
	c := newConsumer(reader, &recordingDispatcher{}, discardLogger())
	c.retryMin = 20 * time.Millisecond
	c.retryMax = 40 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	// 20 + 40 + 40 + 40 + 40 ms of waiting fits at most six reads into the window
	assert.GreaterOrEqual(t, reader.count(), 2, "reads are retried")
	assert.LessOrEqual(t, reader.count(), 7, "reads do not spin")
}

func TestConsumer_RecoversAfterReadErrors(t *testing.T) {
	good, err := json.Marshal(Message{ID: "m1", Kind: KindReviewRequest, To: "ada@example.com"})
	require.NoError(t, err)
	reader := &failingReader{recoverAfter: 2, queue: queueReader{msgs: []kafka.Message{{Value: good}}}}
	d := &recordingDispatcher{}
	c := newConsumer(reader, d, discardLogger())
	c.retryMin = time.Millisecond
	c.retryMax = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(d.messages()) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "m1", d.messages()[0].ID)
}

func TestKafkaRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Kafka container test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafkatc.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)

	publisher := NewKafkaPublisher("notifications-test", brokers...)
	defer publisher.Close()
	require.NoError(t, publisher.Send(ctx, Message{ID: "m1", Kind: KindOrderConfirmation, To: "ada@example.com", Subject: "Hi"}))

	d := &recordingDispatcher{}
	consumer := NewConsumer(d, discardLogger(), "notifications-test", "notifier-test", brokers...)
	defer consumer.Close()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go consumer.Run(runCtx)

	require.Eventually(t, func() bool {
		return len(d.messages()) == 1
	}, 60*time.Second, 200*time.Millisecond, "message was not delivered")
	assert.Equal(t, "Hi", d.messages()[0].Subject)
}
