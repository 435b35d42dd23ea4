package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront/internal/events"
	"storefront/internal/lifecycle"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// Actor is the authenticated user performing an order operation.
type Actor struct {
	ID   string
	Role models.Role
}

// OrderService drives orders through their lifecycle on behalf of customers,
// admins and shippers.
type OrderService struct {
	orders   repositories.OrderRepository
	notifier *events.Notifier
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderRepository, notifier *events.Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetOrder returns an order the actor is allowed to see.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleShipper:
		if order.ShipperID != actor.ID && order.Status != models.OrderStatusPackaging {
			return nil, ErrNotAssignedShipper
		}
	default:
		if order.UserID != actor.ID {
			return nil, ErrNotOrderOwner
		}
	}
	return order, nil
}

// ListForCustomer returns the customer's own orders, newest first.
func (s *OrderService) ListForCustomer(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.GetAll(ctx, repositories.OrderFilter{UserID: userID})
}

// ListAll returns every order, optionally only those in status.
func (s *OrderService) ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	if status != "" && !lifecycle.Known(status) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return s.orders.GetAll(ctx, repositories.OrderFilter{Status: status})
}

// ListForShipper returns orders waiting to be claimed plus the shipper's own.
func (s *OrderService) ListForShipper(ctx context.Context, shipperID string) ([]models.Order, error) {
	claimable, err := s.orders.GetAll(ctx, repositories.OrderFilter{Status: models.OrderStatusPackaging})
	if err != nil {
		return nil, err
	}
	mine, err := s.orders.GetAll(ctx, repositories.OrderFilter{ShipperID: shipperID})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(claimable)+len(mine))
	out := make([]models.Order, 0, len(claimable)+len(mine))
	for _, o := range append(claimable, mine...) {
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Cancel cancels a pending order and puts its stock back. Customers may only
// cancel their own orders.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrCancelReasonRequired
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleCustomer && order.UserID != actor.ID {
		return nil, ErrNotOrderOwner
	}
	if err := lifecycle.Check(actor.Role, order.Status, models.OrderStatusCancelled); err != nil {
		return nil, err
	}

	at := s.now()
	return s.transition(ctx, actor, order, repositories.StatusChange{
		To:          models.OrderStatusCancelled,
		Cancel:      &models.CancelInfo{Reason: reason, At: &at, By: actor.ID},
		ReturnStock: stockLines(order),
	})
}

// Confirm accepts a pending order and moves it straight on to packaging.
// Online orders must be paid first.
func (s *OrderService) Confirm(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(actor.Role, order.Status, models.OrderStatusConfirmed); err != nil {
		return nil, err
	}
	if err := lifecycle.Check(actor.Role, models.OrderStatusConfirmed, models.OrderStatusPackaging); err != nil {
		return nil, err
	}
	if order.PaymentMethod == models.PaymentMethodVNPay && order.PaymentStatus != models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order %s is %s", ErrPaymentPending, order.ID, order.PaymentStatus)
	}

	at := s.now()
	return s.transition(ctx, actor, order, repositories.StatusChange{
		To:          models.OrderStatusPackaging,
		ConfirmedAt: &at,
		ConfirmedBy: actor.ID,
	})
}

// ShipperUpdate applies a shipper's requested status.
func (s *OrderService) ShipperUpdate(ctx context.Context, actor Actor, id string, to models.OrderStatus) (*models.Order, error) {
	switch to {
	case models.OrderStatusInProgress:
		return s.Claim(ctx, actor, id)
	case models.OrderStatusDelivered:
		return s.MarkDelivered(ctx, actor, id)
	case models.OrderStatusFailed:
		return s.MarkFailed(ctx, actor, id)
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(actor.Role, order.Status, to); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
}

// Claim assigns a packaged order to the shipper and starts delivery.
func (s *OrderService) Claim(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleShipper && order.ShipperID != "" && order.ShipperID != actor.ID {
		return nil, ErrNotAssignedShipper
	}
	if err := lifecycle.Check(actor.Role, order.Status, models.OrderStatusInProgress); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, order, repositories.StatusChange{
		To:        models.OrderStatusInProgress,
		ShipperID: actor.ID,
	})
}

// MarkDelivered completes delivery. Cash on delivery orders become paid.
func (s *OrderService) MarkDelivered(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(actor.Role, order.Status, models.OrderStatusDelivered); err != nil {
		return nil, err
	}
	if order.ShipperID != actor.ID {
		return nil, ErrNotAssignedShipper
	}

	at := s.now()
	change := repositories.StatusChange{
		To:              models.OrderStatusDelivered,
		ExpectShipperID: actor.ID,
		DeliveredAt:     &at,
	}
	if order.PaymentMethod == models.PaymentMethodCOD {
		change.PaymentStatus = models.PaymentStatusPaid
	}
	return s.transition(ctx, actor, order, change)
}

// MarkFailed records a failed cash on delivery and returns its stock.
func (s *OrderService) MarkFailed(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(actor.Role, order.Status, models.OrderStatusFailed); err != nil {
		return nil, err
	}
	if order.ShipperID != actor.ID {
		return nil, ErrNotAssignedShipper
	}
	if order.PaymentMethod != models.PaymentMethodCOD {
		return nil, fmt.Errorf("%w: only cash on delivery orders can fail delivery", ErrTransitionForbidden)
	}
	return s.transition(ctx, actor, order, repositories.StatusChange{
		To:              models.OrderStatusFailed,
		ExpectShipperID: actor.ID,
		ReturnStock:     stockLines(order),
	})
}

// ConfirmReceipt is the customer acknowledging a delivered order.
func (s *OrderService) ConfirmReceipt(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID {
		return nil, ErrNotOrderOwner
	}
	if err := lifecycle.Check(actor.Role, order.Status, models.OrderStatusConfirmReceive); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, order, repositories.StatusChange{To: models.OrderStatusConfirmReceive})
}

func (s *OrderService) load(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return order, nil
}

// transition writes change only if the order is still in the status it was
// loaded with, then re-reads it.
func (s *OrderService) transition(ctx context.Context, actor Actor, order *models.Order, change repositories.StatusChange) (*models.Order, error) {
	from := order.Status
	if err := s.orders.UpdateStatus(ctx, order.ID, from, change); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStatusConflict):
			return nil, fmt.Errorf("%w: %s", ErrStatusConflict, order.ID)
		case errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, order.ID)
		}
		return nil, fmt.Errorf("failed to update order status for order %s: %w", order.ID, err)
	}

	updated, err := s.load(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("order status changed", "order_id", order.ID,
		"from", from, "to", updated.Status, "actor_id", actor.ID, "role", actor.Role)
	s.notifier.StatusChanged(ctx, updated, from, actor.ID)
	return updated, nil
}

func stockLines(order *models.Order) []repositories.StockLine {
	lines := make([]repositories.StockLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, repositories.StockLine{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			SubVariantID: it.SubVariantID,
			Quantity:     it.Quantity,
		})
	}
	return lines
}
