package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gemstore/internal/model"

	"github.com/rs/zerolog"
)

// PlatformConfig configures the parcel-network client. The provider
// issues a long-lived token out of band; no refresh lifecycle.
type PlatformConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// PlatformClient integrates the parcel-network carrier.
type PlatformClient struct {
	cfg    PlatformConfig
	client *http.Client
	logger zerolog.Logger
}

const (
	platformStatusDelivered = "delivered"
	platformStatusReturned  = "returned"
	platformStatusCanceled  = "canceled"
)

// NewPlatformClient creates a parcel-network client.
func NewPlatformClient(cfg PlatformConfig, logger zerolog.Logger) *PlatformClient {
	return &PlatformClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("adapter", "platform").Logger(),
	}
}

// Type implements Adapter.
func (c *PlatformClient) Type() model.DeliveryType {
	return model.DeliveryTypePlatform
}

// Quote returns the provider's available delivery windows.
func (c *PlatformClient) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	payload := struct {
		Destination string `json:"destination"`
		Weight      int    `json:"weight"`
	}{
		Destination: req.Address,
		Weight:      req.WeightGrams,
	}

	var out struct {
		Options []struct {
			TariffID int    `json:"tariff_id"`
			Name     string `json:"name"`
			Cost     int64  `json:"cost"`
			DaysMin  int    `json:"days_min"`
			DaysMax  int    `json:"days_max"`
		} `json:"options"`
	}
	if err := c.post(ctx, "/api/v1/tariffs", payload, &out); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(out.Options))
	for _, o := range out.Options {
		quotes = append(quotes, Quote{
			TariffCode: o.TariffID,
			TariffName: o.Name,
			Price:      o.Cost,
			MinDays:    o.DaysMin,
			MaxDays:    o.DaysMax,
		})
	}
	return quotes, nil
}

// CreateBooking registers the shipment with the parcel network.
func (c *PlatformClient) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	payload := struct {
		ExternalOrderID string `json:"external_order_id"`
		Address         string `json:"address"`
		Recipient       string `json:"recipient"`
		Phone           string `json:"phone"`
		DeclaredValue   int64  `json:"declared_value"`
		Weight          int    `json:"weight"`
	}{
		ExternalOrderID: req.OrderID.String(),
		Address:         req.Address,
		Recipient:       req.Recipient.Name,
		Phone:           req.Recipient.Phone,
		DeclaredValue:   req.Amount,
		Weight:          req.WeightGrams,
	}

	var out struct {
		OrderID     string `json:"order_id"`
		TrackingURL string `json:"tracking_url"`
		Status      string `json:"status"`
		Error       string `json:"error"`
	}
	if err := c.post(ctx, "/api/v1/orders", payload, &out); err != nil {
		return Booking{}, err
	}

	if out.Error != "" {
		c.logger.Warn().Str("order_id", req.OrderID.String()).Str("reason", out.Error).Msg("booking rejected by provider")
		return Booking{}, &model.DeliveryBookingError{Provider: model.DeliveryTypePlatform, Reason: out.Error}
	}
	if out.OrderID == "" {
		return Booking{}, &model.DeliveryBookingError{Provider: model.DeliveryTypePlatform, Reason: "provider returned no shipment id"}
	}

	c.logger.Info().
		Str("order_id", req.OrderID.String()).
		Str("delivery_id", out.OrderID).
		Msg("booking created")

	return Booking{
		ExternalID:  out.OrderID,
		TrackingURL: out.TrackingURL,
		RawStatus:   out.Status,
	}, nil
}

// ParseCallback translates a parcel-network status callback.
func (c *PlatformClient) ParseCallback(payload []byte) (StatusUpdate, error) {
	var event struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return StatusUpdate{}, fmt.Errorf("failed to decode callback: %w", err)
	}
	if event.OrderID == "" {
		return StatusUpdate{}, fmt.Errorf("callback missing shipment id")
	}

	terminal := event.Status == platformStatusDelivered ||
		event.Status == platformStatusReturned ||
		event.Status == platformStatusCanceled

	return StatusUpdate{
		ExternalID: event.OrderID,
		Status:     event.Status,
		Reason:     event.Reason,
		Terminal:   terminal,
		Delivered:  event.Status == platformStatusDelivered,
	}, nil
}

func (c *PlatformClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return wrapTransportErr("platform", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("platform request %s returned %d: %s", path, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
