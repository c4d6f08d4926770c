package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"gemstore/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLockerTestServer serves the OAuth token endpoint plus the given
// API handlers, rejecting API calls without the issued bearer token.
func newLockerTestServer(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()

	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token"})
	})
	for path, h := range handlers {
		handler := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			handler(w, r)
		})
	}

	return httptest.NewServer(mux), &tokenCalls
}

func newTestLockerClient(srvURL string) *LockerClient {
	return NewLockerClient(LockerConfig{
		BaseURL:      srvURL,
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	}, zerolog.Nop())
}

func TestLockerClient_Quote(t *testing.T) {
	srv, tokenCalls := newLockerTestServer(t, map[string]http.HandlerFunc{
		"/v2/calculator/tarifflist": func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ToLocation struct {
					PostalCode string `json:"postal_code"`
				} `json:"to_location"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "101000", req.ToLocation.PostalCode)

			json.NewEncoder(w).Encode(map[string]any{
				"tariff_codes": []map[string]any{
					{"tariff_code": 136, "tariff_name": "warehouse-warehouse", "delivery_sum": 300.0, "period_min": 2, "period_max": 4},
					{"tariff_code": 137, "tariff_name": "warehouse-door", "delivery_sum": 450.0, "period_min": 2, "period_max": 5},
				},
			})
		},
	})
	defer srv.Close()

	client := newTestLockerClient(srv.URL)
	quotes, err := client.Quote(context.Background(), QuoteRequest{
		FromIndex:   "190000",
		ToIndex:     "101000",
		WeightGrams: 500,
	})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, 136, quotes[0].TariffCode)
	assert.Equal(t, int64(300), quotes[0].Price)
	assert.Equal(t, 4, quotes[0].MaxDays)
	assert.Equal(t, int32(1), atomic.LoadInt32(tokenCalls))
}

func TestLockerClient_CreateBooking(t *testing.T) {
	orderID := uuid.New()
	srv, _ := newLockerTestServer(t, map[string]http.HandlerFunc{
		"/v2/orders": func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Number        string `json:"number"`
				TariffCode    int    `json:"tariff_code"`
				DeliveryPoint string `json:"delivery_point"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, orderID.String(), req.Number)
			assert.Equal(t, 136, req.TariffCode)
			assert.Equal(t, "MSK67", req.DeliveryPoint)

			json.NewEncoder(w).Encode(map[string]any{
				"entity":   map[string]any{"uuid": "ext-123"},
				"requests": []map[string]any{{"state": "ACCEPTED"}},
			})
		},
	})
	defer srv.Close()

	client := newTestLockerClient(srv.URL)
	booking, err := client.CreateBooking(context.Background(), BookingRequest{
		OrderID:       orderID,
		Type:          model.DeliveryTypeLocker,
		PickupPointID: "MSK67",
		TariffCode:    136,
		WeightGrams:   500,
		Recipient:     Recipient{Name: "A. Customer", Phone: "+70000000000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-123", booking.ExternalID)
	assert.Contains(t, booking.TrackingURL, "ext-123")
}

func TestLockerClient_CreateBookingRejected(t *testing.T) {
	srv, _ := newLockerTestServer(t, map[string]http.HandlerFunc{
		"/v2/orders": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"requests": []map[string]any{{
					"state":  "INVALID",
					"errors": []map[string]any{{"message": "delivery point not found"}},
				}},
			})
		},
	})
	defer srv.Close()

	client := newTestLockerClient(srv.URL)
	_, err := client.CreateBooking(context.Background(), BookingRequest{OrderID: uuid.New()})
	require.Error(t, err)

	var bookingErr *model.DeliveryBookingError
	require.True(t, errors.As(err, &bookingErr))
	assert.Equal(t, model.DeliveryTypeLocker, bookingErr.Provider)
	assert.Equal(t, "delivery point not found", bookingErr.Reason)
}

func TestLockerClient_Offices(t *testing.T) {
	srv, _ := newLockerTestServer(t, map[string]http.HandlerFunc{
		"/v2/deliverypoints": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "101000", r.URL.Query().Get("postal_code"))
			w.Write([]byte(`[{"code":"MSK67"}]`))
		},
	})
	defer srv.Close()

	client := newTestLockerClient(srv.URL)
	raw, err := client.Offices(context.Background(), url.Values{"postal_code": {"101000"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"code":"MSK67"}]`, string(raw))
}

func TestLockerClient_ParseCallback(t *testing.T) {
	client := newTestLockerClient("http://unused")

	tests := []struct {
		name      string
		payload   string
		want      StatusUpdate
		expectErr bool
	}{
		{
			name:    "Intermediate status",
			payload: `{"type":"ORDER_STATUS","uuid":"ext-1","attributes":{"code":"ACCEPTED"}}`,
			want:    StatusUpdate{ExternalID: "ext-1", Status: "ACCEPTED"},
		},
		{
			name:    "Delivered is terminal",
			payload: `{"type":"ORDER_STATUS","uuid":"ext-1","attributes":{"code":"DELIVERED"}}`,
			want:    StatusUpdate{ExternalID: "ext-1", Status: "DELIVERED", Terminal: true, Delivered: true},
		},
		{
			name:    "Not delivered is terminal failure",
			payload: `{"type":"ORDER_STATUS","uuid":"ext-1","attributes":{"code":"NOT_DELIVERED","status_reason_code":"20"}}`,
			want:    StatusUpdate{ExternalID: "ext-1", Status: "NOT_DELIVERED", Reason: "20", Terminal: true},
		},
		{
			name:      "Unsupported event type",
			payload:   `{"type":"PRINT_FORM","uuid":"ext-1"}`,
			expectErr: true,
		},
		{
			name:      "Missing shipment id",
			payload:   `{"type":"ORDER_STATUS","attributes":{"code":"ACCEPTED"}}`,
			expectErr: true,
		},
		{
			name:      "Malformed payload",
			payload:   `{`,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.ParseCallback([]byte(tt.payload))
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformClient_ParseCallback(t *testing.T) {
	client := NewPlatformClient(PlatformConfig{}, zerolog.Nop())

	got, err := client.ParseCallback([]byte(`{"order_id":"p-1","status":"delivered"}`))
	require.NoError(t, err)
	assert.True(t, got.Terminal)
	assert.True(t, got.Delivered)

	got, err = client.ParseCallback([]byte(`{"order_id":"p-1","status":"in_transit"}`))
	require.NoError(t, err)
	assert.False(t, got.Terminal)

	got, err = client.ParseCallback([]byte(`{"order_id":"p-1","status":"returned","reason":"refused"}`))
	require.NoError(t, err)
	assert.True(t, got.Terminal)
	assert.False(t, got.Delivered)
	assert.Equal(t, "refused", got.Reason)
}

func TestPostalClient_ParseCallback(t *testing.T) {
	client := NewPostalClient(PostalConfig{}, zerolog.Nop())

	got, err := client.ParseCallback([]byte(`{"shipment-id":"42","oper-type":"DELIVERED"}`))
	require.NoError(t, err)
	assert.Equal(t, "42", got.ExternalID)
	assert.True(t, got.Delivered)

	// Falls back to the barcode when no shipment id is present.
	got, err = client.ParseCallback([]byte(`{"barcode":"RA123","oper-type":"SORTING"}`))
	require.NoError(t, err)
	assert.Equal(t, "RA123", got.ExternalID)
	assert.False(t, got.Terminal)
}
