package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryType selects the external carrier integration for an order.
type DeliveryType string

const (
	DeliveryTypePlatform DeliveryType = "platform"
	DeliveryTypeLocker   DeliveryType = "locker"
	DeliveryTypePostal   DeliveryType = "postal"
)

func (t DeliveryType) String() string {
	return string(t)
}

// Valid reports whether t is a known delivery type.
func (t DeliveryType) Valid() bool {
	switch t {
	case DeliveryTypePlatform, DeliveryTypeLocker, DeliveryTypePostal:
		return true
	}
	return false
}

// Delivery is one booking with an external provider. Each provider has
// its own status vocabulary; only the status column matching Type is
// populated. The record is created once per order and updated in place
// as callbacks arrive, never deleted.
type Delivery struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	OrderID        uuid.UUID    `json:"orderId" db:"order_id"`
	Type           DeliveryType `json:"type" db:"type"`
	DeliveryID     *string      `json:"deliveryId,omitempty" db:"delivery_id"`
	URL            *string      `json:"url,omitempty" db:"url"`
	PlatformStatus *string      `json:"platformStatus,omitempty" db:"platform_status"`
	LockerStatus   *string      `json:"lockerStatus,omitempty" db:"locker_status"`
	PostalStatus   *string      `json:"postalStatus,omitempty" db:"postal_status"`
	Reason         *string      `json:"reason,omitempty" db:"reason"`
	PickupPointID  *string      `json:"pickupPointId,omitempty" db:"pickup_point_id"`
	TariffCode     *int         `json:"tariffCode,omitempty" db:"tariff_code"`
	TariffName     *string      `json:"tariffName,omitempty" db:"tariff_name"`
	MailType       *string      `json:"mailType,omitempty" db:"mail_type"`
	PostalIndex    *string      `json:"postalIndex,omitempty" db:"postal_index"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time    `json:"updatedAt" db:"updated_at"`
}

// Status returns the provider-specific status populated for the
// record's type.
func (d *Delivery) Status() *string {
	switch d.Type {
	case DeliveryTypePlatform:
		return d.PlatformStatus
	case DeliveryTypeLocker:
		return d.LockerStatus
	case DeliveryTypePostal:
		return d.PostalStatus
	}
	return nil
}
