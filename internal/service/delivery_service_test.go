package service

import (
	"context"
	"errors"
	"testing"

	"gemstore/internal/delivery"
	"gemstore/internal/model"
	"gemstore/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type deliveryServiceFixture struct {
	deliveries *mockDeliveryRepo
	orders     *mockOrderRepo
	notifier   *recordingNotifier
	adapter    *fakeAdapter
	svc        DeliveryService
}

func newDeliveryServiceFixture(update delivery.StatusUpdate, parseErr error) *deliveryServiceFixture {
	f := &deliveryServiceFixture{
		deliveries: new(mockDeliveryRepo),
		orders:     new(mockOrderRepo),
		notifier:   &recordingNotifier{},
		adapter: &fakeAdapter{
			typ: model.DeliveryTypeLocker,
			callback: func(payload []byte) (delivery.StatusUpdate, error) {
				return update, parseErr
			},
		},
	}
	f.svc = NewDeliveryService(delivery.NewRegistry(f.adapter), f.deliveries, f.orders, f.notifier, zerolog.Nop())
	return f
}

func TestDeliveryService_ApplyCallback(t *testing.T) {
	orderID := uuid.New()
	recordID := uuid.New()
	record := &model.Delivery{ID: recordID, OrderID: orderID, Type: model.DeliveryTypeLocker}

	t.Run("intermediate status only touches the record", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{ExternalID: "ext-1", Status: "READY_FOR_SHIPMENT"}, nil)
		f.deliveries.On("GetByExternalID", mock.Anything, "ext-1").Return(record, nil)
		f.deliveries.On("ApplyStatus", mock.Anything, recordID, model.DeliveryTypeLocker, "READY_FOR_SHIPMENT", (*string)(nil)).
			Return(true, nil)

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{}`)))
		f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivered moves order to DELIVERED", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{
			ExternalID: "ext-1", Status: "DELIVERED", Terminal: true, Delivered: true,
		}, nil)
		f.deliveries.On("GetByExternalID", mock.Anything, "ext-1").Return(record, nil)
		f.deliveries.On("ApplyStatus", mock.Anything, recordID, model.DeliveryTypeLocker, "DELIVERED", (*string)(nil)).
			Return(true, nil)
		f.orders.On("GetByID", mock.Anything, orderID).
			Return(&model.Order{ID: orderID, UserID: uuid.New(), Status: model.OrderStatusDelivering}, nil)
		f.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusDelivering, model.OrderStatusDelivered).
			Return(true, nil)

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{}`)))
		assert.Equal(t, []string{notify.EventOrderDelivered}, f.notifier.Events())
	})

	t.Run("failed shipment records reason and notifies", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{
			ExternalID: "ext-1", Status: "NOT_DELIVERED", Reason: "recipient unreachable", Terminal: true,
		}, nil)
		reason := "recipient unreachable"
		f.deliveries.On("GetByExternalID", mock.Anything, "ext-1").Return(record, nil)
		f.deliveries.On("ApplyStatus", mock.Anything, recordID, model.DeliveryTypeLocker, "NOT_DELIVERED", &reason).
			Return(true, nil)
		f.orders.On("GetByID", mock.Anything, orderID).
			Return(&model.Order{ID: orderID, UserID: uuid.New(), Status: model.OrderStatusDelivering}, nil)

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{}`)))
		assert.Equal(t, []string{notify.EventDeliveryFailed}, f.notifier.Events())
		f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("re-delivered callback is a no-op", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{
			ExternalID: "ext-1", Status: "DELIVERED", Terminal: true, Delivered: true,
		}, nil)
		f.deliveries.On("GetByExternalID", mock.Anything, "ext-1").Return(record, nil)
		f.deliveries.On("ApplyStatus", mock.Anything, recordID, model.DeliveryTypeLocker, "DELIVERED", (*string)(nil)).
			Return(false, nil)

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{}`)))
		f.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.Events())
	})

	t.Run("unknown shipment is swallowed", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{ExternalID: "ghost", Status: "DELIVERED"}, nil)
		f.deliveries.On("GetByExternalID", mock.Anything, "ghost").Return(nil, nil)

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{}`)))
		f.deliveries.AssertNotCalled(t, "ApplyStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed payload is swallowed", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{}, errors.New("bad payload"))

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{`)))
		f.deliveries.AssertNotCalled(t, "GetByExternalID", mock.Anything, mock.Anything)
	})

	t.Run("unregistered type is an error", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{}, nil)

		err := f.svc.ApplyCallback(context.Background(), model.DeliveryTypePostal, []byte(`{}`))
		require.ErrorIs(t, err, model.ErrNoAdapter)
	})

	t.Run("order left DELIVERING is skipped quietly", func(t *testing.T) {
		f := newDeliveryServiceFixture(delivery.StatusUpdate{
			ExternalID: "ext-1", Status: "DELIVERED", Terminal: true, Delivered: true,
		}, nil)
		f.deliveries.On("GetByExternalID", mock.Anything, "ext-1").Return(record, nil)
		f.deliveries.On("ApplyStatus", mock.Anything, recordID, model.DeliveryTypeLocker, "DELIVERED", (*string)(nil)).
			Return(true, nil)
		f.orders.On("GetByID", mock.Anything, orderID).
			Return(&model.Order{ID: orderID, UserID: uuid.New(), Status: model.OrderStatusCanceled}, nil)
		f.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusDelivering, model.OrderStatusDelivered).
			Return(false, nil)

		require.NoError(t, f.svc.ApplyCallback(context.Background(), model.DeliveryTypeLocker, []byte(`{}`)))
		assert.Empty(t, f.notifier.Events())
	})
}

func TestDeliveryService_Quote(t *testing.T) {
	quotes := []delivery.Quote{{TariffCode: 136, TariffName: "warehouse-locker", Price: 300, MinDays: 2, MaxDays: 4}}
	f := newDeliveryServiceFixture(delivery.StatusUpdate{}, nil)
	f.adapter.quote = func(ctx context.Context, req delivery.QuoteRequest) ([]delivery.Quote, error) {
		return quotes, nil
	}

	got, err := f.svc.Quote(context.Background(), model.DeliveryTypeLocker, delivery.QuoteRequest{ToIndex: "101000"})
	require.NoError(t, err)
	assert.Equal(t, quotes, got)

	_, err = f.svc.Quote(context.Background(), model.DeliveryTypePlatform, delivery.QuoteRequest{})
	require.ErrorIs(t, err, model.ErrNoAdapter)
}
