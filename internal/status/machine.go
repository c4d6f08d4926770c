// Package status validates order status transitions. It performs no
// I/O; persistence of the transition itself is a conditional update in
// the repository layer.
package status

import "gemstore/internal/model"

// transitions is the full table of permitted moves. Forward chain
// NOT_PAID -> NEW -> ASSEMBLY -> ASSEMBLED -> DELIVERING -> DELIVERED
// -> COMPLETED, adjacent-step backward moves prior to DELIVERED for
// admin corrections, and CANCELED from every state except DELIVERED
// and COMPLETED.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusNotPaid: {
		model.OrderStatusNew,
		model.OrderStatusCanceled,
	},
	model.OrderStatusNew: {
		model.OrderStatusAssembly,
		model.OrderStatusCanceled,
	},
	model.OrderStatusAssembly: {
		model.OrderStatusAssembled,
		model.OrderStatusNew,
		model.OrderStatusCanceled,
	},
	model.OrderStatusAssembled: {
		model.OrderStatusDelivering,
		model.OrderStatusAssembly,
		model.OrderStatusCanceled,
	},
	model.OrderStatusDelivering: {
		model.OrderStatusDelivered,
		model.OrderStatusAssembled,
		model.OrderStatusCanceled,
	},
	model.OrderStatusDelivered: {
		model.OrderStatusCompleted,
	},
	model.OrderStatusCompleted: nil,
	model.OrderStatusCanceled:  nil,
}

// Initial is the status every order is created in.
const Initial = model.OrderStatusNotPaid

// Can reports whether the transition from -> to is in the table.
func Can(from, to model.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns an InvalidTransitionError naming both statuses when
// the transition is not permitted.
func Validate(from, to model.OrderStatus) error {
	if !Can(from, to) {
		return &model.InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// Terminal reports whether no transition leads out of s.
func Terminal(s model.OrderStatus) bool {
	return len(transitions[s]) == 0
}

// UserCancelable reports whether a customer (as opposed to an admin)
// may still cancel an order in status s.
func UserCancelable(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusNotPaid, model.OrderStatusNew, model.OrderStatusAssembly:
		return true
	}
	return false
}
