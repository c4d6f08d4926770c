package delivery

import (
	"context"
	"errors"
	"testing"

	"gemstore/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	t model.DeliveryType
}

func (s stubAdapter) Type() model.DeliveryType { return s.t }
func (s stubAdapter) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	return nil, nil
}
func (s stubAdapter) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	return Booking{}, nil
}
func (s stubAdapter) ParseCallback(payload []byte) (StatusUpdate, error) {
	return StatusUpdate{}, nil
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry(
		stubAdapter{t: model.DeliveryTypeLocker},
		stubAdapter{t: model.DeliveryTypePostal},
	)

	a, err := reg.Resolve(model.DeliveryTypeLocker)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryTypeLocker, a.Type())

	a, err = reg.Resolve(model.DeliveryTypePostal)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryTypePostal, a.Type())
}

func TestRegistry_ResolveUnregisteredType(t *testing.T) {
	reg := NewRegistry(stubAdapter{t: model.DeliveryTypeLocker})

	_, err := reg.Resolve(model.DeliveryTypePlatform)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoAdapter))
	assert.Contains(t, err.Error(), "platform")
}

func TestWrapTransportErr(t *testing.T) {
	assert.NoError(t, wrapTransportErr("locker", nil))

	err := wrapTransportErr("locker", context.DeadlineExceeded)
	var timeoutErr *model.ProviderTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "locker", timeoutErr.Provider)

	plain := wrapTransportErr("postal", errors.New("connection refused"))
	assert.False(t, errors.As(plain, &timeoutErr))
	assert.Contains(t, plain.Error(), "postal")
}
