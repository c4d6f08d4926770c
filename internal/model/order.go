package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusNotPaid    OrderStatus = "NOT_PAID"
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusAssembly   OrderStatus = "ASSEMBLY"
	OrderStatusAssembled  OrderStatus = "ASSEMBLED"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNotPaid, OrderStatusNew, OrderStatusAssembly,
		OrderStatusAssembled, OrderStatusDelivering, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// Order represents a customer order. The id is immutable; status moves
// through the transition table in internal/status. Soft-delete and
// restore touch only DeletedAt, never the status.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"userId" db:"user_id"`
	Status        OrderStatus     `json:"status" db:"status"`
	DeliveryPrice int64           `json:"deliveryPrice" db:"delivery_price"`
	PromotionalID *uuid.UUID      `json:"promotionalId,omitempty" db:"promotional_id"`
	Comment       *string         `json:"comment,omitempty" db:"comment"`
	ReceiptID     *string         `json:"receiptId,omitempty" db:"receipt_id"`
	Positions     []OrderPosition `json:"positions,omitempty" db:"-"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty" db:"deleted_at"`
}

// OrderPosition is one catalog item line within an order. Price,
// Discount and DiscountPrice are frozen at checkout and stay untouched
// by later catalog changes. DiscountPrice is the absolute amount
// subtracted from Price and never exceeds it.
type OrderPosition struct {
	ID            uuid.UUID  `json:"-" db:"id"`
	OrderID       uuid.UUID  `json:"-" db:"order_id"`
	ItemID        uuid.UUID  `json:"itemId" db:"item_id"`
	Price         int64      `json:"price" db:"price"`
	Discount      int        `json:"discount" db:"discount"`
	DiscountPrice int64      `json:"discountPrice" db:"discount_price"`
	Count         int        `json:"count" db:"count"`
	GradeID       *uuid.UUID `json:"gradeId,omitempty" db:"grade_id"`
}

// OrderRequest is the checkout payload.
type OrderRequest struct {
	Items         []OrderItemRequest `json:"items"`
	Delivery      DeliveryRequest    `json:"delivery"`
	PromoCode     *string            `json:"promoCode,omitempty"`
	Comment       *string            `json:"comment,omitempty"`
	RecipientName *string            `json:"recipientName,omitempty"`
	Phone         *string            `json:"phone,omitempty"`
}

// OrderItemRequest is a single cart line in a checkout request.
type OrderItemRequest struct {
	ItemID uuid.UUID `json:"itemId"`
	Count  int       `json:"count"`
}

// DeliveryRequest carries the delivery choice made at checkout.
type DeliveryRequest struct {
	Type          DeliveryType `json:"type"`
	Address       string       `json:"address,omitempty"`
	PostalIndex   string       `json:"postalIndex,omitempty"`
	PickupPointID string       `json:"pickupPointId,omitempty"`
	TariffCode    int          `json:"tariffCode,omitempty"`
	Price         int64        `json:"price"`
}

// Checkout result codes returned in the order envelope.
const (
	CheckoutCodeOK                  = 1
	CheckoutCodePromoInvalid        = 2
	CheckoutCodeDeliveryUnavailable = 3
	CheckoutCodePaymentUnavailable  = 4
)

// OrderResponse is the envelope returned by the checkout and the
// pay/cancel action endpoints.
type OrderResponse struct {
	Code    int     `json:"code"`
	Message string  `json:"message,omitempty"`
	Order   *Order  `json:"order,omitempty"`
	URL     *string `json:"url,omitempty"`
}
