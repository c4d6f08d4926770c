package repository

import (
	"context"

	"gemstore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ItemRepository is the catalog collaborator consumed by checkout: it
// serves the authoritative prices snapshotted into order positions.
type ItemRepository interface {
	// GetByIDs retrieves catalog items by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Item, error)
}

// PromotionalRepository reads promotional codes. Maintenance of the
// Active flag is an external scheduled process; this side is read-only.
type PromotionalRepository interface {
	// GetByCode retrieves a promotional by its code, including
	// soft-deleted rows so callers can reject them explicitly.
	GetByCode(ctx context.Context, code string) (*model.Promotional, error)

	// GetByID retrieves a promotional by id, including soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Promotional, error)
}

// OrderRepository defines the data access operations for orders and
// their positions.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderPositions inserts position snapshots within the
	// provided transaction.
	CreateOrderPositions(ctx context.Context, tx pgx.Tx, positions []model.OrderPosition) error

	// GetByID retrieves an order with its positions. Soft-deleted
	// orders are returned with DeletedAt set.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a user's non-deleted orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// ListAll retrieves all orders with pagination, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// UpdateStatus applies a status transition only if the order is
	// currently in the expected status. Returns false when the row was
	// not in that status, which serializes concurrent transitions.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)

	// SetReceiptID records the fiscal receipt id, set once.
	SetReceiptID(ctx context.Context, id uuid.UUID, receiptID string) error

	// SoftDelete marks the order deleted without touching its status.
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)

	// Restore clears the deletion mark without touching the status.
	Restore(ctx context.Context, id uuid.UUID) (bool, error)
}

// DeliveryRepository defines the data access operations for delivery
// bookings. Records are created once and updated in place, never
// deleted.
type DeliveryRepository interface {
	// Create inserts a delivery record.
	Create(ctx context.Context, d *model.Delivery) error

	// GetByOrderID retrieves the delivery booked for an order.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error)

	// GetByExternalID retrieves a delivery by the provider's id.
	GetByExternalID(ctx context.Context, externalID string) (*model.Delivery, error)

	// ApplyStatus updates the provider-specific status column for the
	// record's type. Returns false when the record already carries the
	// given status, making callback re-delivery a no-op.
	ApplyStatus(ctx context.Context, id uuid.UUID, t model.DeliveryType, status string, reason *string) (bool, error)
}

// AcquiringRepository defines the data access operations for payment
// transactions.
type AcquiringRepository interface {
	// Create inserts a transaction in the created state.
	Create(ctx context.Context, tx *model.AcquiringTransaction) error

	// SetLink records the processor's transaction id and payment url
	// and moves the transaction to pending.
	SetLink(ctx context.Context, id uuid.UUID, transactionID, url string) error

	// MarkFailed moves the transaction to failed with a reason.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// GetByTransactionID retrieves a transaction by the processor's id.
	GetByTransactionID(ctx context.Context, transactionID string) (*model.AcquiringTransaction, error)

	// ApplyStatus moves a non-terminal transaction to the given status.
	// Returns false when the transaction is already terminal, making
	// webhook re-delivery a no-op.
	ApplyStatus(ctx context.Context, id uuid.UUID, s model.TransactionStatus, reason *string) (bool, error)
}
