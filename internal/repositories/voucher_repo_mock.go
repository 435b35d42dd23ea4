package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MockVoucherRepository is an in-memory implementation of VoucherRepository.
type MockVoucherRepository struct {
	vouchers map[string]models.Voucher // keyed by code
	mu       sync.RWMutex
}

// NewMockVoucherRepository creates a new instance of MockVoucherRepository.
func NewMockVoucherRepository() *MockVoucherRepository {
	return &MockVoucherRepository{
		vouchers: make(map[string]models.Voucher),
	}
}

// GetAll returns every voucher ordered by code.
func (r *MockVoucherRepository) GetAll(_ context.Context) ([]models.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Voucher, 0, len(r.vouchers))
	for _, v := range r.vouchers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// GetByCode returns the voucher with the given code.
func (r *MockVoucherRepository) GetByCode(_ context.Context, code string) (*models.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vouchers[code]
	if !ok {
		return nil, fmt.Errorf("voucher %s: %w", code, ErrNotFound)
	}
	return &v, nil
}

func (r *MockVoucherRepository) GetByID(_ context.Context, id string) (*models.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.vouchers {
		if v.ID == id {
			out := v
			return &out, nil
		}
	}
	return nil, fmt.Errorf("voucher with ID %s: %w", id, ErrNotFound)
}

// Create adds a voucher.
func (r *MockVoucherRepository) Create(_ context.Context, voucher *models.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vouchers[voucher.Code]; ok {
		return fmt.Errorf("voucher %s: %w", voucher.Code, ErrDuplicate)
	}
	if voucher.ID == "" {
		voucher.ID = uuid.New().String()
	}
	r.vouchers[voucher.Code] = *voucher
	return nil
}

// Update replaces an existing voucher.
func (r *MockVoucherRepository) Update(_ context.Context, voucher *models.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, v := range r.vouchers {
		if v.ID == voucher.ID {
			updated := *voucher
			updated.Code = code
			updated.CreatedAt = v.CreatedAt
			r.vouchers[code] = updated
			return nil
		}
	}
	return fmt.Errorf("voucher with ID %s: %w", voucher.ID, ErrNotFound)
}

// redeemLocked consumes one use. Callers must hold r.mu for writing.
func (r *MockVoucherRepository) redeemLocked(code string) error {
	v, ok := r.vouchers[code]
	if !ok || !v.IsActive || v.Quantity <= 0 {
		return fmt.Errorf("voucher %s: %w", code, ErrVoucherUnavailable)
	}
	v.Quantity--
	r.vouchers[code] = v
	return nil
}
