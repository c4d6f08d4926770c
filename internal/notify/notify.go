// Package notify sends fire-and-forget user notifications. Delivery
// failures are logged and never block or fail the calling flow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Events emitted by the order core.
const (
	EventPaymentConfirmed = "payment_confirmed"
	EventOrderDelivered   = "order_delivered"
	EventOrderCanceled    = "order_canceled"
	EventDeliveryFailed   = "delivery_failed"
)

// Notifier delivers an event to a user.
type Notifier interface {
	// Notify sends the event; it never returns an error.
	Notify(ctx context.Context, userID uuid.UUID, event string, payload any)
}

// HTTPNotifier posts events to the external notification service.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPNotifier creates a notifier for the given service endpoint.
func NewHTTPNotifier(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify implements Notifier.
func (n *HTTPNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, payload any) {
	body, err := json.Marshal(struct {
		UserID  uuid.UUID `json:"userId"`
		Event   string    `json:"event"`
		Payload any       `json:"payload,omitempty"`
	}{UserID: userID, Event: event, Payload: payload})
	if err != nil {
		n.logger.Error().Err(err).Str("event", event).Msg("failed to encode notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		n.logger.Error().Err(err).Str("event", event).Msg("failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("event", event).Str("user_id", userID.String()).Msg("notification delivery failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn().
			Int("status", resp.StatusCode).
			Str("event", event).
			Str("user_id", userID.String()).
			Msg("notification service rejected event")
		return
	}

	n.logger.Debug().Str("event", event).Str("user_id", userID.String()).Msg("notification sent")
}

// Noop discards all notifications. Used when no notification service
// is configured.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(ctx context.Context, userID uuid.UUID, event string, payload any) {}
