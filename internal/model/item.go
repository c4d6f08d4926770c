package model

import (
	"time"

	"github.com/google/uuid"
)

// Item is a catalog entry as seen by checkout. Price and Discount are
// the authoritative values snapshotted into order positions; the rest
// of the catalog (search, listing, images) lives outside this service.
type Item struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	Discount  int       `json:"discount" db:"discount"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// DiscountPrice materializes the absolute amount subtracted from
// Price, floored, never negative and never above Price.
func (i *Item) DiscountPrice() int64 {
	if i.Discount <= 0 {
		return 0
	}
	d := i.Price * int64(i.Discount) / 100
	if d > i.Price {
		return i.Price
	}
	return d
}
