// Package pricing computes order totals and promotional discounts.
// All functions are pure: no I/O, deterministic, directly unit-testable.
package pricing

import "gemstore/internal/model"

// Discount returns the promotional discount for the given subtotal.
// The discount is floored at zero and capped at subtotal-1 so the
// payable amount never reaches zero or goes negative. A positive flat
// discount wins over a percent; a zero or negative flat amount is
// treated as unset so a percent-only promotional still applies.
func Discount(subtotal int64, promo *model.Promotional) int64 {
	if promo == nil || subtotal <= 0 {
		return 0
	}

	cap := subtotal - 1

	if promo.Discount != nil && *promo.Discount > 0 {
		d := *promo.Discount
		if d > cap {
			return cap
		}
		return d
	}

	if promo.DiscountPercent != nil {
		pct := *promo.DiscountPercent
		if pct <= 0 {
			return 0
		}
		if pct > 100 {
			pct = 100
		}
		d := subtotal * int64(pct) / 100
		if d > cap {
			return cap
		}
		return d
	}

	return 0
}

// Subtotal sums the frozen position snapshots: (price - discountPrice)
// per unit, times count.
func Subtotal(positions []model.OrderPosition) int64 {
	var sum int64
	for _, p := range positions {
		unit := p.Price - p.DiscountPrice
		if unit < 0 {
			unit = 0
		}
		sum += unit * int64(p.Count)
	}
	return sum
}

// OrderTotal computes the final payable amount. FreeDelivery on the
// promotional zeroes the delivery component before the discount step.
// The result is always non-negative.
func OrderTotal(positions []model.OrderPosition, deliveryPrice int64, promo *model.Promotional) int64 {
	if deliveryPrice < 0 {
		deliveryPrice = 0
	}
	if promo != nil && promo.FreeDelivery {
		deliveryPrice = 0
	}

	base := Subtotal(positions) + deliveryPrice
	total := base - Discount(base, promo)
	if total < 0 {
		total = 0
	}
	return total
}
