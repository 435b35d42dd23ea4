package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderFilter narrows GetAll. Zero fields are ignored.
type OrderFilter struct {
	UserID    string
	ShipperID string
	Status    models.OrderStatus
}

// StatusChange describes one lifecycle write. It is applied only while the
// order is still in the expected status (and, when ExpectShipperID is set,
// still assigned to that shipper).
type StatusChange struct {
	To              models.OrderStatus
	ExpectShipperID string
	Cancel          *models.CancelInfo
	ConfirmedAt     *time.Time
	ConfirmedBy     string
	ShipperID       string
	DeliveredAt     *time.Time
	PaymentStatus   models.PaymentStatus
	// ReturnStock is added back to inventory in the same transaction.
	ReturnStock []StockLine
}

func (c StatusChange) columns() map[string]interface{} {
	cols := map[string]interface{}{"status": c.To}
	if c.Cancel != nil {
		cols["cancel_reason"] = c.Cancel.Reason
		cols["cancel_at"] = c.Cancel.At
		cols["cancel_by"] = c.Cancel.By
	}
	if c.ConfirmedAt != nil {
		cols["confirmed_at"] = c.ConfirmedAt
		cols["confirmed_by"] = c.ConfirmedBy
	}
	if c.ShipperID != "" {
		cols["shipper_id"] = c.ShipperID
	}
	if c.DeliveredAt != nil {
		cols["delivered_at"] = c.DeliveredAt
	}
	if c.PaymentStatus != "" {
		cols["payment_status"] = c.PaymentStatus
	}
	return cols
}

func (c StatusChange) apply(o *models.Order) {
	o.Status = c.To
	if c.Cancel != nil {
		o.CancelReason = *c.Cancel
	}
	if c.ConfirmedAt != nil {
		o.ConfirmedAt = c.ConfirmedAt
		o.ConfirmedBy = c.ConfirmedBy
	}
	if c.ShipperID != "" {
		o.ShipperID = c.ShipperID
	}
	if c.DeliveredAt != nil {
		o.DeliveredAt = c.DeliveredAt
	}
	if c.PaymentStatus != "" {
		o.PaymentStatus = c.PaymentStatus
	}
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Create decrements every stock line, redeems the voucher (when voucherCode
	// is set) and inserts the order, all or nothing.
	Create(ctx context.Context, order *models.Order, stock []StockLine, voucherCode string) error
	// UpdateStatus applies change if the order is still in status from.
	UpdateStatus(ctx context.Context, id string, from models.OrderStatus, change StatusChange) error
	// UpdatePayment moves the payment status from one value to another. The
	// order must still be pending.
	UpdatePayment(ctx context.Context, id string, from, to models.PaymentStatus, transactionNo string) error
}
