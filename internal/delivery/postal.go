package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"gemstore/internal/model"

	"github.com/rs/zerolog"
)

// PostalConfig configures the postal-service client.
type PostalConfig struct {
	BaseURL     string
	AccessToken string
	FromIndex   string
	Timeout     time.Duration
}

// PostalClient integrates the national postal service. Authentication
// is a static application token; bookings carry mail type and postal
// index fields the other carriers do not use.
type PostalClient struct {
	cfg    PostalConfig
	client *http.Client
	logger zerolog.Logger
}

const (
	postalMailTypeParcel = "POSTAL_PARCEL"

	postalStatusDelivered = "DELIVERED"
	postalStatusReturned  = "RETURNED"
)

// NewPostalClient creates a postal-service client.
func NewPostalClient(cfg PostalConfig, logger zerolog.Logger) *PostalClient {
	return &PostalClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("adapter", "postal").Logger(),
	}
}

// Type implements Adapter.
func (c *PostalClient) Type() model.DeliveryType {
	return model.DeliveryTypePostal
}

// Quote prices the shipment between two postal indexes.
func (c *PostalClient) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	payload := struct {
		IndexFrom string `json:"index-from"`
		IndexTo   string `json:"index-to"`
		MailType  string `json:"mail-type"`
		Mass      int    `json:"mass"`
	}{
		IndexFrom: c.cfg.FromIndex,
		IndexTo:   req.ToIndex,
		MailType:  postalMailTypeParcel,
		Mass:      req.WeightGrams,
	}

	var out struct {
		TotalRate    int64 `json:"total-rate"`
		DeliveryTime struct {
			MinDays int `json:"min-days"`
			MaxDays int `json:"max-days"`
		} `json:"delivery-time"`
	}
	if err := c.post(ctx, "/1.0/tariff", payload, &out); err != nil {
		return nil, err
	}

	// The postal service has a single tariff per mail type; rates come
	// back in minor units.
	return []Quote{{
		TariffName: postalMailTypeParcel,
		Price:      out.TotalRate / 100,
		MinDays:    out.DeliveryTime.MinDays,
		MaxDays:    out.DeliveryTime.MaxDays,
	}}, nil
}

// CreateBooking registers the shipment in the sender's backlog.
func (c *PostalClient) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	payload := []struct {
		OrderNum      string `json:"order-num"`
		AddressTypeTo string `json:"address-type-to"`
		StrIndexTo    string `json:"str-index-to"`
		RegionTo      string `json:"region-to"`
		AddressTo     string `json:"address-to"`
		RecipientName string `json:"recipient-name"`
		TelAddress    string `json:"tel-address"`
		MailType      string `json:"mail-type"`
		Mass          int    `json:"mass"`
	}{{
		OrderNum:      req.OrderID.String(),
		AddressTypeTo: "DEFAULT",
		StrIndexTo:    req.PostalIndex,
		AddressTo:     req.Address,
		RecipientName: req.Recipient.Name,
		TelAddress:    req.Recipient.Phone,
		MailType:      postalMailTypeParcel,
		Mass:          req.WeightGrams,
	}}

	var out struct {
		ResultIDs []int64 `json:"result-ids"`
		Errors    []struct {
			ErrorCodes []struct {
				Description string `json:"description"`
			} `json:"error-codes"`
		} `json:"errors"`
	}
	if err := c.put(ctx, "/1.0/user/backlog", payload, &out); err != nil {
		return Booking{}, err
	}

	if len(out.Errors) > 0 && len(out.Errors[0].ErrorCodes) > 0 {
		reason := out.Errors[0].ErrorCodes[0].Description
		c.logger.Warn().Str("order_id", req.OrderID.String()).Str("reason", reason).Msg("booking rejected by provider")
		return Booking{}, &model.DeliveryBookingError{Provider: model.DeliveryTypePostal, Reason: reason}
	}
	if len(out.ResultIDs) == 0 {
		return Booking{}, &model.DeliveryBookingError{Provider: model.DeliveryTypePostal, Reason: "provider returned no shipment id"}
	}

	externalID := strconv.FormatInt(out.ResultIDs[0], 10)
	c.logger.Info().
		Str("order_id", req.OrderID.String()).
		Str("delivery_id", externalID).
		Msg("booking created")

	return Booking{
		ExternalID:  externalID,
		TrackingURL: c.cfg.BaseURL + "/tracking/" + externalID,
		RawStatus:   "CREATED",
		MailType:    postalMailTypeParcel,
	}, nil
}

// ParseCallback translates a postal tracking callback.
func (c *PostalClient) ParseCallback(payload []byte) (StatusUpdate, error) {
	var event struct {
		Barcode    string `json:"barcode"`
		ShipmentID string `json:"shipment-id"`
		OperType   string `json:"oper-type"`
		Reason     string `json:"oper-attr"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return StatusUpdate{}, fmt.Errorf("failed to decode callback: %w", err)
	}

	id := event.ShipmentID
	if id == "" {
		id = event.Barcode
	}
	if id == "" {
		return StatusUpdate{}, fmt.Errorf("callback missing shipment id")
	}

	terminal := event.OperType == postalStatusDelivered || event.OperType == postalStatusReturned

	return StatusUpdate{
		ExternalID: id,
		Status:     event.OperType,
		Reason:     event.Reason,
		Terminal:   terminal,
		Delivered:  event.OperType == postalStatusDelivered,
	}, nil
}

func (c *PostalClient) post(ctx context.Context, path string, payload, out any) error {
	return c.send(ctx, http.MethodPost, path, payload, out)
}

func (c *PostalClient) put(ctx context.Context, path string, payload, out any) error {
	return c.send(ctx, http.MethodPut, path, payload, out)
}

func (c *PostalClient) send(ctx context.Context, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "AccessToken "+c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return wrapTransportErr("postal", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("postal request %s returned %d: %s", path, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
