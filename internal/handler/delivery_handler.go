package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gemstore/internal/delivery"
	"gemstore/internal/model"
	"gemstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// DeliveryHandler serves delivery quotes and the locker-network
// integration actions.
type DeliveryHandler struct {
	service service.DeliveryService
	locker  *delivery.LockerClient
	logger  zerolog.Logger
}

// NewDeliveryHandler creates a new delivery handler. locker may be nil
// when the locker integration is not configured.
func NewDeliveryHandler(service service.DeliveryService, locker *delivery.LockerClient, logger zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service: service,
		locker:  locker,
		logger:  logger.With().Str("handler", "delivery").Logger(),
	}
}

// Quote handles POST /api/v1/delivery/{type}/quote requests.
func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request) {
	t := model.DeliveryType(chi.URLParam(r, "type"))
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "unknown delivery type", h.logger)
		return
	}

	var req delivery.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	quotes, err := h.service.Quote(r.Context(), t, req)
	if err != nil {
		if errors.Is(err, model.ErrNoAdapter) {
			writeError(w, http.StatusNotFound, "delivery type not available", h.logger)
			return
		}
		writeError(w, http.StatusBadGateway, "delivery provider unavailable", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, quotes)
}

// LockerAction handles GET|POST /api/integrations/locker-network
// requests, dispatching on the action query parameter and proxying to
// the locker network.
func (h *DeliveryHandler) LockerAction(w http.ResponseWriter, r *http.Request) {
	if h.locker == nil {
		writeError(w, http.StatusNotFound, "locker integration not configured", h.logger)
		return
	}

	var (
		out json.RawMessage
		err error
	)

	action := r.URL.Query().Get("action")
	switch action {
	case "offices":
		query := r.URL.Query()
		query.Del("action")
		out, err = h.locker.Offices(r.Context(), query)
	case "calculate":
		var body []byte
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body", h.logger)
			return
		}
		out, err = h.locker.Calculate(r.Context(), body)
	default:
		writeError(w, http.StatusBadRequest, "unknown action", h.logger)
		return
	}

	if err != nil {
		h.logger.Warn().Err(err).Str("action", action).Msg("locker action failed")
		writeError(w, http.StatusBadGateway, "delivery provider unavailable", h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}
