// Package receipt requests fiscal receipts from the external fiscal
// provider after a payment confirms. Receipt issuance is best-effort:
// failures are logged for external retry and never block the order
// transition that triggered them.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gemstore/internal/model"
	"gemstore/internal/repository"

	"github.com/rs/zerolog"
)

// Issuer requests a fiscal receipt for a paid order.
type Issuer interface {
	// Issue requests the receipt and records its id on the order.
	Issue(ctx context.Context, order *model.Order, amount int64)
}

// ServiceConfig configures the fiscal-receipt service.
type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Service is the HTTP implementation of Issuer.
type Service struct {
	cfg      ServiceConfig
	client   *http.Client
	orders   repository.OrderRepository
	archiver Archiver
	logger   zerolog.Logger
}

// NewService creates a receipt service. archiver may be nil when
// archiving is disabled.
func NewService(cfg ServiceConfig, orders repository.OrderRepository, archiver Archiver, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		orders:   orders,
		archiver: archiver,
		logger:   logger.With().Str("component", "receipt-service").Logger(),
	}
}

// Issue requests a fiscal receipt, records its id on the order and
// archives the issued document. Every failure is logged and swallowed.
func (s *Service) Issue(ctx context.Context, order *model.Order, amount int64) {
	logger := s.logger.With().Str("order_id", order.ID.String()).Logger()

	document, receiptID, err := s.request(ctx, order, amount)
	if err != nil {
		logger.Error().Err(err).Msg("receipt issuance failed, left for external retry")
		return
	}

	if err := s.orders.SetReceiptID(ctx, order.ID, receiptID); err != nil {
		logger.Error().Err(err).Str("receipt_id", receiptID).Msg("failed to record receipt id")
		return
	}

	logger.Info().Str("receipt_id", receiptID).Msg("fiscal receipt issued")

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, receiptID+".json", document); err != nil {
			logger.Warn().Err(err).Str("receipt_id", receiptID).Msg("receipt archiving failed")
		}
	}
}

func (s *Service) request(ctx context.Context, order *model.Order, amount int64) ([]byte, string, error) {
	payload := struct {
		OrderID string `json:"orderId"`
		Amount  int64  `json:"amount"`
	}{OrderID: order.ID.String(), Amount: amount}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode receipt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/receipts", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("receipt request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read receipt response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, "", fmt.Errorf("receipt provider returned %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		ReceiptID string `json:"receiptId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, "", fmt.Errorf("failed to decode receipt response: %w", err)
	}
	if out.ReceiptID == "" {
		return nil, "", fmt.Errorf("receipt provider returned no receipt id")
	}

	return raw, out.ReceiptID, nil
}
