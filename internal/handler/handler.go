// Package handler exposes the HTTP surface: customer and back-office
// order endpoints plus the provider webhook receivers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"gemstore/internal/model"

	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps a service error onto an HTTP status and body.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domain *model.DomainError
	if errors.As(err, &domain) {
		status := http.StatusBadRequest
		switch domain.Code {
		case model.ErrCodeOrderNotFound:
			status = http.StatusNotFound
		case model.ErrCodeForbidden:
			status = http.StatusForbidden
		case model.ErrCodeUnauthorised:
			status = http.StatusUnauthorized
		}
		logger.Warn().Str("code", domain.Code).Str("error", domain.Message).Msg("request rejected")
		writeJSON(w, status, ErrorResponse{Error: domain.Message, Code: domain.Code})
		return
	}

	var invalid *model.InvalidTransitionError
	if errors.As(err, &invalid) {
		logger.Warn().Str("error", invalid.Error()).Msg("transition rejected")
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: invalid.Error(), Code: model.ErrCodeInvalidTransition})
		return
	}

	writeError(w, http.StatusInternalServerError, "internal server error", logger)
}
