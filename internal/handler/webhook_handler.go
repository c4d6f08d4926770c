package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"gemstore/internal/model"
	"gemstore/internal/service"

	"github.com/rs/zerolog"
)

// AcquiringWebhook is the slice of the acquiring gateway consumed by
// the webhook receiver.
type AcquiringWebhook interface {
	HandleWebhook(ctx context.Context, payload []byte) error
}

// WebhookHandler receives provider callbacks. Beyond the IP allowlist
// the providers offer no authentication, so the receivers answer only
// 200 or 500: a 200 stops provider retries, a 500 asks for another
// delivery after a persistence failure.
type WebhookHandler struct {
	acquiring  AcquiringWebhook
	deliveries service.DeliveryService
	logger     zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(acquiring AcquiringWebhook, deliveries service.DeliveryService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		acquiring:  acquiring,
		deliveries: deliveries,
		logger:     logger.With().Str("handler", "webhook").Logger(),
	}
}

// Acquiring handles POST /webhooks/acquiring requests.
func (h *WebhookHandler) Acquiring(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read acquiring webhook body")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.acquiring.HandleWebhook(r.Context(), payload); err != nil {
		h.logger.Error().Err(err).Msg("acquiring webhook processing failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// The processor matches on the literal body.
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Delivery returns the webhook receiver for one carrier. Each provider
// gets its own route so webhook routes can carry per-provider source
// allowlists.
func (h *WebhookHandler) Delivery(t model.DeliveryType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to read delivery webhook body")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if err := h.deliveries.ApplyCallback(r.Context(), t, payload); err != nil {
			if errors.Is(err, model.ErrNoAdapter) {
				h.logger.Warn().Str("type", t.String()).Msg("callback for unconfigured delivery type")
				w.WriteHeader(http.StatusOK)
				return
			}
			h.logger.Error().Err(err).Str("type", t.String()).Msg("delivery webhook processing failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
