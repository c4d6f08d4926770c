package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus enumerates the states of a payment attempt.
type TransactionStatus string

const (
	TransactionStatusCreated   TransactionStatus = "created"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is permitted.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed
}

// AcquiringTransaction is one payment attempt for an order. An order
// may accumulate several across pay retries; a confirmed transaction
// is what authorizes the NOT_PAID -> NEW order transition.
type AcquiringTransaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	OrderID       uuid.UUID         `json:"orderId" db:"order_id"`
	TransactionID *string           `json:"transactionId,omitempty" db:"transaction_id"`
	URL           *string           `json:"url,omitempty" db:"url"`
	Amount        int64             `json:"amount" db:"amount"`
	Status        TransactionStatus `json:"status" db:"status"`
	Type          string            `json:"type" db:"type"`
	Reason        *string           `json:"reason,omitempty" db:"reason"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updated_at"`
}
