package model

import (
	"errors"
	"fmt"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidPromo      = "INVALID_PROMO"
	ErrCodeItemNotFound      = "ITEM_NOT_FOUND"
	ErrCodeInvalidCount      = "INVALID_COUNT"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError carries a stable code alongside a human-readable message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Common domain errors
var (
	ErrPromoInvalid     = NewDomainError(ErrCodeInvalidPromo, "Promo code does not exist or is not active")
	ErrPromoExpired     = NewDomainError(ErrCodeInvalidPromo, "Promo code is outside its validity window")
	ErrItemNotFound     = NewDomainError(ErrCodeItemNotFound, "One or more items not found")
	ErrInvalidCount     = NewDomainError(ErrCodeInvalidCount, "Count must be greater than zero")
	ErrOrderNotFound    = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrForeignOrder     = NewDomainError(ErrCodeForbidden, "Order belongs to another user")
	ErrCancelNotAllowed = NewDomainError(ErrCodeForbidden, "Order can no longer be canceled")
)

// ErrNoAdapter is returned when no delivery integration is registered
// for a requested delivery type.
var ErrNoAdapter = errors.New("no suitable delivery integration registered")

// InvalidTransitionError names a rejected order status transition.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition %s -> %s", e.From, e.To)
}

// DeliveryBookingError wraps a provider-side booking rejection with the
// provider's raw reason.
type DeliveryBookingError struct {
	Provider DeliveryType
	Reason   string
	Err      error
}

func (e *DeliveryBookingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s booking failed: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s booking failed", e.Provider)
}

func (e *DeliveryBookingError) Unwrap() error {
	return e.Err
}

// AuthError indicates an authentication failure against an external
// provider that could not be recovered by a single token refresh.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ProviderTimeoutError indicates a bounded-timeout expiry on an
// outbound provider call. Such calls are not retried automatically.
type ProviderTimeoutError struct {
	Provider string
	Err      error
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out: %v", e.Provider, e.Err)
}

func (e *ProviderTimeoutError) Unwrap() error {
	return e.Err
}
