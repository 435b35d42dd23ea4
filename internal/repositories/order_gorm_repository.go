package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// GetAll returns orders matching filter, newest first.
func (r *GORMOrderRepository) GetAll(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ShipperID != "" {
		q = q.Where("shipper_id = ?", filter.ShipperID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetByID returns an order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// Create commits stock, voucher and order in a single transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order, stock []StockLine, voucherCode string) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decrementStock(tx, stock); err != nil {
			return err
		}
		if voucherCode != "" {
			if err := redeemVoucher(tx, voucherCode); err != nil {
				return err
			}
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
}

// UpdateStatus is a compare-and-set on the order status.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from models.OrderStatus, change StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Order{}).Where("id = ? AND status = ?", id, from)
		if change.ExpectShipperID != "" {
			q = q.Where("shipper_id = ?", change.ExpectShipperID)
		}
		res := q.Updates(change.columns())
		if res.Error != nil {
			return fmt.Errorf("failed to update order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return r.missOrConflict(tx, id)
		}
		if len(change.ReturnStock) > 0 {
			if err := incrementStock(tx, change.ReturnStock); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdatePayment is a compare-and-set on the payment status of a pending order.
func (r *GORMOrderRepository) UpdatePayment(ctx context.Context, id string, from, to models.PaymentStatus, transactionNo string) error {
	cols := map[string]interface{}{"payment_status": to}
	if transactionNo != "" {
		cols["transaction_no"] = transactionNo
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND status = ?", id, from, models.OrderStatusPending).
		Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(r.db.WithContext(ctx), id)
	}
	return nil
}

func (r *GORMOrderRepository) missOrConflict(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check order %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("order with ID %s: %w", id, ErrStatusConflict)
}
