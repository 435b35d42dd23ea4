// Package lifecycle holds the order status graph and the roles allowed to
// walk each edge. Every surface (customer, admin, shipper) asks this package
// before writing a status.
package lifecycle

import (
	"errors"
	"fmt"

	"storefront/internal/models"
)

var (
	// ErrInvalidTransition is returned for an edge that does not exist in the graph.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrTransitionForbidden is returned when the edge exists but the role may not take it.
	ErrTransitionForbidden = errors.New("role may not perform this transition")
)

var transitions = map[models.OrderStatus]map[models.OrderStatus][]models.Role{
	models.OrderStatusPending: {
		models.OrderStatusConfirmed: {models.RoleAdmin},
		models.OrderStatusCancelled: {models.RoleCustomer, models.RoleAdmin},
	},
	models.OrderStatusConfirmed: {
		models.OrderStatusPackaging: {models.RoleAdmin},
	},
	models.OrderStatusPackaging: {
		models.OrderStatusInProgress: {models.RoleShipper},
	},
	models.OrderStatusInProgress: {
		models.OrderStatusDelivered: {models.RoleShipper},
		models.OrderStatusFailed:    {models.RoleShipper},
	},
	models.OrderStatusDelivered: {
		models.OrderStatusConfirmReceive: {models.RoleCustomer},
	},
}

// CanTransition reports whether role may move an order from one status to another.
func CanTransition(role models.Role, from, to models.OrderStatus) bool {
	return Check(role, from, to) == nil
}

// Check is CanTransition with the reason for a refusal.
func Check(role models.Role, from, to models.OrderStatus) error {
	edges, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: %s is terminal or unknown", ErrInvalidTransition, from)
	}
	roles, ok := edges[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot move %s -> %s", ErrTransitionForbidden, role, from, to)
}

// IsTerminal reports whether s is a lifecycle status no transition leaves.
func IsTerminal(s models.OrderStatus) bool {
	return Known(s) && len(transitions[s]) == 0
}

// Known reports whether s is one of the lifecycle statuses.
func Known(s models.OrderStatus) bool {
	for _, k := range order {
		if k == s {
			return true
		}
	}
	return false
}

// order fixes the iteration order used by Next.
var order = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusPackaging,
	models.OrderStatusInProgress,
	models.OrderStatusDelivered,
	models.OrderStatusConfirmReceive,
	models.OrderStatusCancelled,
	models.OrderStatusFailed,
}
