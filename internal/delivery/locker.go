package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gemstore/internal/model"

	"github.com/rs/zerolog"
)

// LockerConfig configures the locker-network client.
type LockerConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// LockerClient integrates the locker-network carrier. The provider
// issues short-lived bearer tokens via a client-credentials exchange;
// the token lifecycle lives in AuthTransport so every call site gets
// the single-refresh-on-401 behaviour for free.
type LockerClient struct {
	cfg    LockerConfig
	client *http.Client
	logger zerolog.Logger
}

// Locker-network order statuses considered terminal.
const (
	lockerStatusDelivered    = "DELIVERED"
	lockerStatusNotDelivered = "NOT_DELIVERED"
)

// NewLockerClient creates a locker-network client with its own token
// source wrapped around the transport.
func NewLockerClient(cfg LockerConfig, logger zerolog.Logger) *LockerClient {
	logger = logger.With().Str("adapter", "locker").Logger()

	c := &LockerClient{
		cfg:    cfg,
		logger: logger,
	}

	tokens := NewTokenSource(string(model.DeliveryTypeLocker), c.exchangeToken, logger)
	c.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &AuthTransport{Tokens: tokens},
	}

	return c
}

// Type implements Adapter.
func (c *LockerClient) Type() model.DeliveryType {
	return model.DeliveryTypeLocker
}

// exchangeToken performs the OAuth2 client-credentials exchange. It
// uses a plain client on purpose: routing it through AuthTransport
// would recurse.
func (c *LockerClient) exchangeToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v2/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: c.cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", wrapTransportErr("locker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return out.AccessToken, nil
}

type lockerLocation struct {
	PostalCode string `json:"postal_code,omitempty"`
	Address    string `json:"address,omitempty"`
}

type lockerPackage struct {
	Weight int `json:"weight"`
	Length int `json:"length,omitempty"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Quote requests the provider's tariff list for the shipment.
func (c *LockerClient) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	payload := struct {
		FromLocation lockerLocation  `json:"from_location"`
		ToLocation   lockerLocation  `json:"to_location"`
		Packages     []lockerPackage `json:"packages"`
	}{
		FromLocation: lockerLocation{PostalCode: req.FromIndex},
		ToLocation:   lockerLocation{PostalCode: req.ToIndex, Address: req.Address},
		Packages: []lockerPackage{{
			Weight: req.WeightGrams,
			Length: req.LengthCm,
			Width:  req.WidthCm,
			Height: req.HeightCm,
		}},
	}

	var out struct {
		TariffCodes []struct {
			TariffCode  int     `json:"tariff_code"`
			TariffName  string  `json:"tariff_name"`
			DeliverySum float64 `json:"delivery_sum"`
			PeriodMin   int     `json:"period_min"`
			PeriodMax   int     `json:"period_max"`
		} `json:"tariff_codes"`
	}
	if err := c.post(ctx, "/v2/calculator/tarifflist", payload, &out); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(out.TariffCodes))
	for _, t := range out.TariffCodes {
		quotes = append(quotes, Quote{
			TariffCode: t.TariffCode,
			TariffName: t.TariffName,
			Price:      int64(t.DeliverySum),
			MinDays:    t.PeriodMin,
			MaxDays:    t.PeriodMax,
		})
	}
	return quotes, nil
}

// CreateBooking registers the shipment with the locker network.
func (c *LockerClient) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	payload := struct {
		Number        string `json:"number"`
		TariffCode    int    `json:"tariff_code"`
		DeliveryPoint string `json:"delivery_point,omitempty"`
		ToLocation    *lockerLocation `json:"to_location,omitempty"`
		Recipient     struct {
			Name   string `json:"name"`
			Phones []struct {
				Number string `json:"number"`
			} `json:"phones"`
		} `json:"recipient"`
		Packages []lockerPackage `json:"packages"`
	}{
		Number:        req.OrderID.String(),
		TariffCode:    req.TariffCode,
		DeliveryPoint: req.PickupPointID,
		Packages:      []lockerPackage{{Weight: req.WeightGrams}},
	}
	if req.PickupPointID == "" {
		payload.ToLocation = &lockerLocation{PostalCode: req.PostalIndex, Address: req.Address}
	}
	payload.Recipient.Name = req.Recipient.Name
	payload.Recipient.Phones = []struct {
		Number string `json:"number"`
	}{{Number: req.Recipient.Phone}}

	var out struct {
		Entity struct {
			UUID string `json:"uuid"`
		} `json:"entity"`
		Requests []struct {
			State  string `json:"state"`
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		} `json:"requests"`
	}
	if err := c.post(ctx, "/v2/orders", payload, &out); err != nil {
		return Booking{}, err
	}

	for _, r := range out.Requests {
		if r.State == "INVALID" {
			reason := "order rejected"
			if len(r.Errors) > 0 {
				reason = r.Errors[0].Message
			}
			c.logger.Warn().Str("order_id", req.OrderID.String()).Str("reason", reason).Msg("booking rejected by provider")
			return Booking{}, &model.DeliveryBookingError{Provider: model.DeliveryTypeLocker, Reason: reason}
		}
	}
	if out.Entity.UUID == "" {
		return Booking{}, &model.DeliveryBookingError{Provider: model.DeliveryTypeLocker, Reason: "provider returned no shipment id"}
	}

	c.logger.Info().
		Str("order_id", req.OrderID.String()).
		Str("delivery_id", out.Entity.UUID).
		Msg("booking created")

	return Booking{
		ExternalID:  out.Entity.UUID,
		TrackingURL: c.cfg.BaseURL + "/track/" + out.Entity.UUID,
		RawStatus:   "CREATED",
		TariffCode:  req.TariffCode,
	}, nil
}

// Offices proxies the pickup-point listing call. Used by the generic
// integration endpoint's "offices" action.
func (c *LockerClient) Offices(ctx context.Context, query url.Values) (json.RawMessage, error) {
	endpoint := c.cfg.BaseURL + "/v2/deliverypoints"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, wrapTransportErr("locker", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read offices response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("offices request returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

// Calculate proxies a raw tariff calculation request. Used by the
// generic integration endpoint's "calculate" action.
func (c *LockerClient) Calculate(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v2/calculator/tarifflist", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, wrapTransportErr("locker", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read calculate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calculate request returned %d: %s", resp.StatusCode, out)
	}
	return out, nil
}

// ParseCallback translates an ORDER_STATUS event into a status update.
func (c *LockerClient) ParseCallback(payload []byte) (StatusUpdate, error) {
	var event struct {
		Type       string `json:"type"`
		UUID       string `json:"uuid"`
		Attributes struct {
			Code       string `json:"code"`
			StatusCode string `json:"status_code"`
			Reason     string `json:"status_reason_code"`
		} `json:"attributes"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return StatusUpdate{}, fmt.Errorf("failed to decode callback: %w", err)
	}
	if event.Type != "ORDER_STATUS" {
		return StatusUpdate{}, fmt.Errorf("unsupported callback type: %q", event.Type)
	}
	if event.UUID == "" {
		return StatusUpdate{}, fmt.Errorf("callback missing shipment id")
	}

	code := event.Attributes.Code
	if code == "" {
		code = event.Attributes.StatusCode
	}

	return StatusUpdate{
		ExternalID: event.UUID,
		Status:     code,
		Reason:     event.Attributes.Reason,
		Terminal:   code == lockerStatusDelivered || code == lockerStatusNotDelivered,
		Delivered:  code == lockerStatusDelivered,
	}, nil
}

// post sends a JSON request through the authenticated client.
func (c *LockerClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return wrapTransportErr("locker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("locker request %s returned %d: %s", path, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
