package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/payment"
)

type WebhookVerifier interface {
	Verify(payload []byte, signature string) (payment.Event, error)
}

type WebhookHandler struct {
	verifier WebhookVerifier
	checkout CheckoutWorkflow
	maxBody  int64
	log      *slog.Logger
}

func NewWebhookHandler(verifier WebhookVerifier, workflow CheckoutWorkflow, maxBody int64, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, checkout: workflow, maxBody: maxBody, log: log.With(slog.String("component", "webhook"))}
}

// POST /webhook
//
// Events that cannot succeed on redelivery (bad metadata, unknown products, empty cart) are
// acknowledged after logging. Other failures return 500 so the authority retries; recording
// a session twice is prevented by its unique payment reference.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}

	event, err := h.verifier.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.WarnContext(r.Context(), "webhook rejected", slog.Any("error", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if event.Session != nil {
		order, err := h.checkout.CompleteSession(r.Context(), event.Session.ID, event.Session.Metadata)
		switch {
		case err == nil:
			h.log.InfoContext(r.Context(), "checkout session recorded",
				slog.String("event_id", event.ID),
				slog.String("session_id", event.Session.ID),
				slog.String("order_id", order.ID))
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrEmptyCart):
			h.log.ErrorContext(r.Context(), "checkout session dropped",
				slog.String("event_id", event.ID),
				slog.String("session_id", event.Session.ID),
				slog.Any("error", err))
		default:
			handleError(w, r, h.log, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
