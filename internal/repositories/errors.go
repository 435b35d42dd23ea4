package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every lookup that finds nothing.
	ErrNotFound = errors.New("not found")
	// ErrStockConflict means a conditional stock decrement matched no row.
	ErrStockConflict = errors.New("stock no longer sufficient")
	// ErrVoucherUnavailable means a voucher could not be redeemed at commit time.
	ErrVoucherUnavailable = errors.New("voucher no longer available")
	// ErrStatusConflict means the order was no longer in the expected state.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidStockLine means a stock line asked to move a non-positive quantity.
	ErrInvalidStockLine = errors.New("stock line quantity must be positive")
)

func checkStockLines(lines []StockLine) error {
	for i, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("line %d (product %s, quantity %d): %w", i, l.ProductID, l.Quantity, ErrInvalidStockLine)
		}
	}
	return nil
}

// StockLine addresses one stock counter: the sub-variant when SubVariantID is
// set, otherwise the variant itself.
type StockLine struct {
	ProductID    string
	VariantID    string
	SubVariantID string
	Quantity     int
}
