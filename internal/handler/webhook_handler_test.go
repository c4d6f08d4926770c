package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gemstore/internal/delivery"
	"gemstore/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAcquiringWebhook struct {
	mock.Mock
}

func (m *mockAcquiringWebhook) HandleWebhook(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type mockDeliveryService struct {
	mock.Mock
}

func (m *mockDeliveryService) Quote(ctx context.Context, t model.DeliveryType, req delivery.QuoteRequest) ([]delivery.Quote, error) {
	args := m.Called(ctx, t, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]delivery.Quote), args.Error(1)
}

func (m *mockDeliveryService) ApplyCallback(ctx context.Context, t model.DeliveryType, payload []byte) error {
	args := m.Called(ctx, t, payload)
	return args.Error(0)
}

func webhookTestRouter(h *WebhookHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/api/integrations/acquiring/webhook", h.Acquiring)
	r.Post("/api/integrations/locker-network/webhook", h.Delivery(model.DeliveryTypeLocker))
	r.Post("/api/integrations/postal/webhook", h.Delivery(model.DeliveryTypePostal))
	return r
}

func TestWebhookHandler_Acquiring(t *testing.T) {
	payload := []byte(`{"PaymentId":1,"Status":"CONFIRMED"}`)

	t.Run("processed", func(t *testing.T) {
		acq := new(mockAcquiringWebhook)
		acq.On("HandleWebhook", mock.Anything, payload).Return(nil)

		router := webhookTestRouter(NewWebhookHandler(acq, new(mockDeliveryService), zerolog.Nop()))
		req := httptest.NewRequest(http.MethodPost, "/api/integrations/acquiring/webhook", bytes.NewReader(payload))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("persistence failure asks for retry", func(t *testing.T) {
		acq := new(mockAcquiringWebhook)
		acq.On("HandleWebhook", mock.Anything, mock.Anything).Return(errors.New("db down"))

		router := webhookTestRouter(NewWebhookHandler(acq, new(mockDeliveryService), zerolog.Nop()))
		req := httptest.NewRequest(http.MethodPost, "/api/integrations/acquiring/webhook", bytes.NewReader(payload))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestWebhookHandler_Delivery(t *testing.T) {
	payload := []byte(`{"type":"ORDER_STATUS","uuid":"ext-1"}`)

	t.Run("processed", func(t *testing.T) {
		svc := new(mockDeliveryService)
		svc.On("ApplyCallback", mock.Anything, model.DeliveryTypeLocker, payload).Return(nil)

		router := webhookTestRouter(NewWebhookHandler(new(mockAcquiringWebhook), svc, zerolog.Nop()))
		req := httptest.NewRequest(http.MethodPost, "/api/integrations/locker-network/webhook", bytes.NewReader(payload))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unconfigured adapter answers 200", func(t *testing.T) {
		svc := new(mockDeliveryService)
		svc.On("ApplyCallback", mock.Anything, model.DeliveryTypePostal, mock.Anything).
			Return(model.ErrNoAdapter)

		router := webhookTestRouter(NewWebhookHandler(new(mockAcquiringWebhook), svc, zerolog.Nop()))
		req := httptest.NewRequest(http.MethodPost, "/api/integrations/postal/webhook", bytes.NewReader(payload))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("persistence failure asks for retry", func(t *testing.T) {
		svc := new(mockDeliveryService)
		svc.On("ApplyCallback", mock.Anything, model.DeliveryTypeLocker, mock.Anything).
			Return(errors.New("db down"))

		router := webhookTestRouter(NewWebhookHandler(new(mockAcquiringWebhook), svc, zerolog.Nop()))
		req := httptest.NewRequest(http.MethodPost, "/api/integrations/locker-network/webhook", bytes.NewReader(payload))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDeliveryHandler_Quote(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mockDeliveryService)
		svc.On("Quote", mock.Anything, model.DeliveryTypeLocker, mock.Anything).
			Return([]delivery.Quote{{TariffCode: 136, Price: 300}}, nil)

		h := NewDeliveryHandler(svc, nil, zerolog.Nop())
		r := chi.NewRouter()
		r.Post("/api/v1/delivery/{type}/quote", h.Quote)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/delivery/locker/quote",
			bytes.NewReader([]byte(`{"toIndex":"101000","weightGrams":600}`)))
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		h := NewDeliveryHandler(new(mockDeliveryService), nil, zerolog.Nop())
		r := chi.NewRouter()
		r.Post("/api/v1/delivery/{type}/quote", h.Quote)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/delivery/horse/quote", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider failure maps to 502", func(t *testing.T) {
		svc := new(mockDeliveryService)
		svc.On("Quote", mock.Anything, model.DeliveryTypeLocker, mock.Anything).
			Return(nil, &model.ProviderTimeoutError{Provider: "locker", Err: context.DeadlineExceeded})

		h := NewDeliveryHandler(svc, nil, zerolog.Nop())
		r := chi.NewRouter()
		r.Post("/api/v1/delivery/{type}/quote", h.Quote)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/delivery/locker/quote", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("locker action without integration", func(t *testing.T) {
		h := NewDeliveryHandler(new(mockDeliveryService), nil, zerolog.Nop())
		r := chi.NewRouter()
		r.Get("/api/integrations/locker-network", h.LockerAction)

		req := httptest.NewRequest(http.MethodGet, "/api/integrations/locker-network?action=offices", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
