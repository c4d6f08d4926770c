// Package service holds the business logic between the HTTP handlers
// and the repositories and provider integrations.
package service

import (
	"context"

	"gemstore/internal/delivery"
	"gemstore/internal/model"

	"github.com/google/uuid"
)

// OrderService orchestrates checkout and the order lifecycle.
type OrderService interface {
	// Create runs the checkout: validates the promotional, snapshots
	// item prices, persists the order with its positions atomically,
	// books the delivery and requests a payment link. Partial failures
	// after the order is persisted are reported through the envelope
	// code, the order itself stays NOT_PAID.
	Create(ctx context.Context, userID uuid.UUID, req *model.OrderRequest) (*model.OrderResponse, error)

	// Pay requests a fresh payment link for an unpaid order.
	Pay(ctx context.Context, userID, orderID uuid.UUID) (*model.OrderResponse, error)

	// Cancel cancels the caller's own order while it is still in a
	// customer-cancelable status.
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error)

	// GetByID retrieves an order. Non-admin callers only see their own.
	GetByID(ctx context.Context, userID uuid.UUID, admin bool, orderID uuid.UUID) (*model.Order, error)

	// ListOwn retrieves the caller's orders, newest first.
	ListOwn(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// ListAll retrieves all orders with pagination. Admin only.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// UpdateStatus applies an admin status transition after validating
	// it against the transition table.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, to model.OrderStatus) (*model.Order, error)

	// SoftDelete hides an order without touching its status.
	SoftDelete(ctx context.Context, orderID uuid.UUID) error

	// Restore reverses a soft delete.
	Restore(ctx context.Context, orderID uuid.UUID) error
}

// DeliveryService serves delivery quotes and reconciles provider
// callbacks.
type DeliveryService interface {
	// Quote returns available tariffs from the provider serving the
	// given delivery type.
	Quote(ctx context.Context, t model.DeliveryType, req delivery.QuoteRequest) ([]delivery.Quote, error)

	// ApplyCallback applies a provider status callback to the matching
	// delivery record and, on terminal updates, to the order itself.
	// Unknown shipments are logged and swallowed.
	ApplyCallback(ctx context.Context, t model.DeliveryType, payload []byte) error
}

// PaymentGateway is the slice of the acquiring gateway consumed by
// checkout.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, order *model.Order, amount int64) (*model.AcquiringTransaction, error)
}
