package pricing

import (
	"testing"

	"gemstore/internal/model"

	"github.com/stretchr/testify/assert"
)

func flat(v int64) *int64 { return &v }
func pct(v int) *int      { return &v }

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		promo    *model.Promotional
		want     int64
	}{
		{
			name:     "No promotional",
			subtotal: 1000,
			promo:    nil,
			want:     0,
		},
		{
			name:     "Zero subtotal yields no discount",
			subtotal: 0,
			promo:    &model.Promotional{Discount: flat(100)},
			want:     0,
		},
		{
			name:     "Flat discount within bounds",
			subtotal: 1000,
			promo:    &model.Promotional{Discount: flat(300)},
			want:     300,
		},
		{
			name:     "Flat discount capped at subtotal minus one",
			subtotal: 200,
			promo:    &model.Promotional{Discount: flat(500)},
			want:     199,
		},
		{
			name:     "Negative flat discount ignored",
			subtotal: 1000,
			promo:    &model.Promotional{Discount: flat(-50)},
			want:     0,
		},
		{
			name:     "Percent discount floors",
			subtotal: 5300,
			promo:    &model.Promotional{DiscountPercent: pct(10)},
			want:     530,
		},
		{
			name:     "Percent discount floors fractional result",
			subtotal: 999,
			promo:    &model.Promotional{DiscountPercent: pct(10)},
			want:     99,
		},
		{
			name:     "Hundred percent capped at subtotal minus one",
			subtotal: 400,
			promo:    &model.Promotional{DiscountPercent: pct(100)},
			want:     399,
		},
		{
			name:     "Percent above hundred clamped",
			subtotal: 400,
			promo:    &model.Promotional{DiscountPercent: pct(150)},
			want:     399,
		},
		{
			name:     "Flat takes precedence when both set",
			subtotal: 1000,
			promo:    &model.Promotional{Discount: flat(100), DiscountPercent: pct(50)},
			want:     100,
		},
		{
			name:     "Zero flat amount falls back to percent",
			subtotal: 5300,
			promo:    &model.Promotional{Discount: flat(0), DiscountPercent: pct(10)},
			want:     530,
		},
		{
			name:     "Negative flat amount falls back to percent",
			subtotal: 1000,
			promo:    &model.Promotional{Discount: flat(-50), DiscountPercent: pct(20)},
			want:     200,
		},
		{
			name:     "Promotional with neither field set",
			subtotal: 1000,
			promo:    &model.Promotional{},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Discount(tt.subtotal, tt.promo)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscount_Bounds(t *testing.T) {
	// For any positive subtotal the discount stays within [0, subtotal-1].
	promos := []*model.Promotional{
		{Discount: flat(0)},
		{Discount: flat(1)},
		{Discount: flat(1 << 40)},
		{DiscountPercent: pct(1)},
		{DiscountPercent: pct(50)},
		{DiscountPercent: pct(100)},
	}
	for _, promo := range promos {
		for _, subtotal := range []int64{1, 2, 99, 100, 5300, 1 << 30} {
			d := Discount(subtotal, promo)
			assert.GreaterOrEqual(t, d, int64(0))
			assert.LessOrEqual(t, d, subtotal-1)
		}
	}
}

func TestOrderTotal(t *testing.T) {
	positions := []model.OrderPosition{
		{Price: 2000, DiscountPrice: 0, Count: 2},
		{Price: 1200, DiscountPrice: 200, Count: 1},
	}
	// subtotal = 2000*2 + 1000 = 5000

	tests := []struct {
		name          string
		positions     []model.OrderPosition
		deliveryPrice int64
		promo         *model.Promotional
		want          int64
	}{
		{
			name:          "No promotional",
			positions:     positions,
			deliveryPrice: 300,
			promo:         nil,
			want:          5300,
		},
		{
			name:          "Ten percent off cart plus delivery",
			positions:     positions,
			deliveryPrice: 300,
			promo:         &model.Promotional{DiscountPercent: pct(10)},
			want:          4770,
		},
		{
			name:          "Free delivery zeroes delivery component",
			positions:     positions,
			deliveryPrice: 300,
			promo:         &model.Promotional{FreeDelivery: true},
			want:          5000,
		},
		{
			name:          "Free delivery combined with percent",
			positions:     positions,
			deliveryPrice: 300,
			promo:         &model.Promotional{FreeDelivery: true, DiscountPercent: pct(10)},
			want:          4500,
		},
		{
			name:          "Flat discount larger than total",
			positions:     []model.OrderPosition{{Price: 100, Count: 1}},
			deliveryPrice: 0,
			promo:         &model.Promotional{Discount: flat(10000)},
			want:          1,
		},
		{
			name:          "Empty cart",
			positions:     nil,
			deliveryPrice: 0,
			promo:         nil,
			want:          0,
		},
		{
			name:          "Negative delivery price treated as zero",
			positions:     positions,
			deliveryPrice: -50,
			promo:         nil,
			want:          5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OrderTotal(tt.positions, tt.deliveryPrice, tt.promo)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, int64(0))
		})
	}
}

func TestSubtotal_DiscountPriceNeverExceedsPrice(t *testing.T) {
	// A malformed snapshot with discountPrice above price must not
	// drive the subtotal negative.
	positions := []model.OrderPosition{
		{Price: 100, DiscountPrice: 150, Count: 3},
		{Price: 500, DiscountPrice: 100, Count: 1},
	}
	assert.Equal(t, int64(400), Subtotal(positions))
}
