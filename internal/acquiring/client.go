// Package acquiring integrates the payment processor: it creates
// payment transactions and reconciles the processor's webhook
// callbacks with the order state machine.
package acquiring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"gemstore/internal/model"

	"github.com/rs/zerolog"
)

// InitResult is the processor's answer to a payment initialization.
type InitResult struct {
	TransactionID string
	URL           string
}

// ProcessorClient creates payment transactions with the external
// processor.
type ProcessorClient interface {
	// Init registers a payment for the given order and amount and
	// returns the processor's transaction id and payment page url.
	Init(ctx context.Context, orderID string, amount int64) (InitResult, error)
}

// ClientConfig configures the HTTP processor client.
type ClientConfig struct {
	BaseURL     string
	TerminalKey string
	SuccessURL  string
	FailURL     string
	Timeout     time.Duration
}

// Client is the HTTP implementation of ProcessorClient.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	logger zerolog.Logger
}

// NewClient creates a processor client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "acquiring-client").Logger(),
	}
}

// Init registers a payment with the processor.
func (c *Client) Init(ctx context.Context, orderID string, amount int64) (InitResult, error) {
	payload := struct {
		TerminalKey string `json:"TerminalKey"`
		OrderID     string `json:"OrderId"`
		Amount      int64  `json:"Amount"`
		SuccessURL  string `json:"SuccessURL,omitempty"`
		FailURL     string `json:"FailURL,omitempty"`
	}{
		TerminalKey: c.cfg.TerminalKey,
		OrderID:     orderID,
		Amount:      amount,
		SuccessURL:  c.cfg.SuccessURL,
		FailURL:     c.cfg.FailURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return InitResult{}, fmt.Errorf("failed to encode init request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/Init", bytes.NewReader(body))
	if err != nil {
		return InitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return InitResult{}, &model.ProviderTimeoutError{Provider: "acquiring", Err: err}
		}
		return InitResult{}, fmt.Errorf("acquiring init request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return InitResult{}, fmt.Errorf("acquiring init returned %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		Success    bool        `json:"Success"`
		PaymentID  json.Number `json:"PaymentId"`
		PaymentURL string      `json:"PaymentURL"`
		Message    string      `json:"Message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return InitResult{}, fmt.Errorf("failed to decode init response: %w", err)
	}

	if !out.Success {
		c.logger.Warn().Str("order_id", orderID).Str("message", out.Message).Msg("processor rejected payment init")
		return InitResult{}, fmt.Errorf("processor rejected payment: %s", out.Message)
	}

	return InitResult{
		TransactionID: out.PaymentID.String(),
		URL:           out.PaymentURL,
	}, nil
}
