package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// It commits against the given product and voucher repositories, taking
// their locks in a fixed order (orders, products, vouchers).
type MockOrderRepository struct {
	orders   map[string]models.Order
	mu       sync.RWMutex
	products *MockProductRepository
	vouchers *MockVoucherRepository
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository(products *MockProductRepository, vouchers *MockVoucherRepository) *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[string]models.Order),
		products: products,
		vouchers: vouchers,
	}
}

// GetAll returns orders matching filter, newest first.
func (r *MockOrderRepository) GetAll(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.ShipperID != "" && o.ShipperID != filter.ShipperID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orderList = append(orderList, cloneOrder(o))
	}
	sort.Slice(orderList, func(i, j int) bool { return orderList[i].CreatedAt.After(orderList[j].CreatedAt) })
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	o := cloneOrder(order)
	return &o, nil
}

// Create commits stock, voucher and order atomically.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order, stock []StockLine, voucherCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.products != nil {
		r.products.mu.Lock()
		defer r.products.mu.Unlock()
	}
	if r.vouchers != nil {
		r.vouchers.mu.Lock()
		defer r.vouchers.mu.Unlock()
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrDuplicate)
	}
	if voucherCode != "" {
		if r.vouchers == nil {
			return fmt.Errorf("voucher %s: %w", voucherCode, ErrVoucherUnavailable)
		}
		v, ok := r.vouchers.vouchers[voucherCode]
		if !ok || !v.IsActive || v.Quantity <= 0 {
			return fmt.Errorf("voucher %s: %w", voucherCode, ErrVoucherUnavailable)
		}
	}
	if len(stock) > 0 {
		if r.products == nil {
			return fmt.Errorf("no product store: %w", ErrStockConflict)
		}
		if err := r.products.decrementLocked(stock); err != nil {
			return err
		}
	}
	if voucherCode != "" {
		// Checked above under the same lock, so this cannot fail.
		_ = r.vouchers.redeemLocked(voucherCode)
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// UpdateStatus is a compare-and-set on the order status.
func (r *MockOrderRepository) UpdateStatus(_ context.Context, id string, from models.OrderStatus, change StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	if order.Status != from || (change.ExpectShipperID != "" && order.ShipperID != change.ExpectShipperID) {
		return fmt.Errorf("order with ID %s: %w", id, ErrStatusConflict)
	}
	if err := checkStockLines(change.ReturnStock); err != nil {
		return err
	}
	if len(change.ReturnStock) > 0 && r.products != nil {
		r.products.mu.Lock()
		for _, l := range change.ReturnStock {
			if q := r.products.counterLocked(l); q != nil {
				*q += l.Quantity
			}
		}
		r.products.mu.Unlock()
	}
	change.apply(&order)
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

// UpdatePayment is a compare-and-set on the payment status of a pending order.
func (r *MockOrderRepository) UpdatePayment(_ context.Context, id string, from, to models.PaymentStatus, transactionNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	if order.PaymentStatus != from || order.Status != models.OrderStatusPending {
		return fmt.Errorf("order with ID %s: %w", id, ErrStatusConflict)
	}
	order.PaymentStatus = to
	if transactionNo != "" {
		order.TransactionNo = transactionNo
	}
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func cloneOrder(o models.Order) models.Order {
	out := o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	return out
}
