package model

import (
	"time"

	"github.com/google/uuid"
)

// Promotional is a time-bounded discount code. Exactly one of Discount
// (flat currency units) or DiscountPercent is expected to be set; when
// both are present the flat discount takes precedence. FreeDelivery
// waives the delivery-price component. Active is maintained by an
// external scheduled process and consumed read-only here.
type Promotional struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Code            string     `json:"code" db:"code"`
	Start           time.Time  `json:"start" db:"start_date"`
	End             time.Time  `json:"end" db:"end_date"`
	Discount        *int64     `json:"discount,omitempty" db:"discount"`
	DiscountPercent *int       `json:"discountPercent,omitempty" db:"discount_percent"`
	FreeDelivery    bool       `json:"freeDelivery" db:"free_delivery"`
	Active          bool       `json:"active" db:"active"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// Applicable reports whether the promotional can be applied on the
// given day: not soft-deleted, flagged active, and the day falls inside
// the [Start, End] window (inclusive by day).
func (p *Promotional) Applicable(on time.Time) bool {
	if p == nil || p.DeletedAt != nil || !p.Active {
		return false
	}
	day := on.Truncate(24 * time.Hour)
	start := p.Start.Truncate(24 * time.Hour)
	end := p.End.Truncate(24 * time.Hour)
	return !day.Before(start) && !day.After(end)
}
