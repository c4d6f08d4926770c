// Package delivery integrates the order core with external carriers.
// Adapters translate the provider-neutral request/response model into
// each provider's wire format; persistence of Delivery rows stays in
// the repository layer.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"

	"gemstore/internal/model"

	"github.com/google/uuid"
)

// Quote is one available tariff returned by a provider.
type Quote struct {
	TariffCode int    `json:"tariffCode"`
	TariffName string `json:"tariffName"`
	Price      int64  `json:"price"`
	MinDays    int    `json:"minDays"`
	MaxDays    int    `json:"maxDays"`
}

// QuoteRequest describes the shipment to price.
type QuoteRequest struct {
	FromIndex   string `json:"fromIndex"`
	ToIndex     string `json:"toIndex"`
	Address     string `json:"address"`
	WeightGrams int    `json:"weightGrams"`
	LengthCm    int    `json:"lengthCm"`
	WidthCm     int    `json:"widthCm"`
	HeightCm    int    `json:"heightCm"`
}

// Recipient identifies the person accepting the shipment.
type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// BookingRequest carries everything an adapter needs to register a
// shipment with its provider.
type BookingRequest struct {
	OrderID       uuid.UUID
	Type          model.DeliveryType
	Address       string
	PostalIndex   string
	PickupPointID string
	TariffCode    int
	Amount        int64
	WeightGrams   int
	Recipient     Recipient
}

// Booking is the provider-neutral result of a successful registration.
type Booking struct {
	ExternalID  string
	TrackingURL string
	RawStatus   string
	TariffCode  int
	TariffName  string
	MailType    string
}

// StatusUpdate is a parsed provider status callback.
type StatusUpdate struct {
	ExternalID string
	Status     string
	Reason     string
	Terminal   bool
	Delivered  bool
}

// Adapter is the capability set every carrier integration implements.
type Adapter interface {
	// Type identifies the delivery type the adapter serves.
	Type() model.DeliveryType

	// Quote returns available tariffs for the shipment. Stateless
	// network call, no persistence.
	Quote(ctx context.Context, req QuoteRequest) ([]Quote, error)

	// CreateBooking registers the shipment with the provider. On
	// provider-side validation failure it returns a
	// DeliveryBookingError carrying the provider's raw reason.
	CreateBooking(ctx context.Context, req BookingRequest) (Booking, error)

	// ParseCallback translates a provider webhook payload into a
	// provider-neutral status update.
	ParseCallback(payload []byte) (StatusUpdate, error)
}

// Registry resolves adapters by delivery type. It is populated once at
// startup; a lookup for an unregistered type is a configuration error.
type Registry struct {
	adapters map[model.DeliveryType]Adapter
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.DeliveryType]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

// Resolve returns the adapter registered for t.
func (r *Registry) Resolve(t model.DeliveryType) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNoAdapter, t)
	}
	return a, nil
}

// wrapTransportErr classifies an outbound call failure: deadline and
// network timeouts become ProviderTimeoutError, everything else is
// wrapped as-is.
func wrapTransportErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &model.ProviderTimeoutError{Provider: provider, Err: err}
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}
