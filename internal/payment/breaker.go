package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/azura/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// Breaker guards an Authority with a circuit breaker and a per-call timeout. Declines are
// answers from a healthy authority and do not count as failures.
type Breaker struct {
	next    Authority
	cb      *gobreaker.CircuitBreaker[Authorization]
	timeout time.Duration
}

func NewBreaker(name string, next Authority, timeout time.Duration, log *slog.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker[Authorization](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrPaymentDeclined) || errors.Is(err, domain.ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("payment breaker state changed",
				slog.String("authority", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &Breaker{next: next, cb: cb, timeout: timeout}
}

func (b *Breaker) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	auth, err := b.cb.Execute(func() (Authorization, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return b.next.Authorize(callCtx, charge)
	})
	if err == nil {
		return auth, nil
	}
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return Authorization{}, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return Authorization{}, fmt.Errorf("%w: authority timed out", domain.ErrPaymentUnavailable)
	}
	return Authorization{}, err
}
