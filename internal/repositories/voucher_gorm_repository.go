package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMVoucherRepository is a GORM implementation of VoucherRepository.
type GORMVoucherRepository struct {
	db *gorm.DB
}

// NewGORMVoucherRepository creates a new instance of GORMVoucherRepository.
func NewGORMVoucherRepository(db *gorm.DB) *GORMVoucherRepository {
	return &GORMVoucherRepository{db: db}
}

// GetAll lists vouchers, newest first.
func (r *GORMVoucherRepository) GetAll(ctx context.Context) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&vouchers).Error; err != nil {
		return nil, fmt.Errorf("failed to get vouchers: %w", err)
	}
	return vouchers, nil
}

// GetByCode looks a voucher up by its unique code.
func (r *GORMVoucherRepository) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("voucher %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get voucher %s: %w", code, err)
	}
	return &voucher, nil
}

func (r *GORMVoucherRepository) GetByID(ctx context.Context, id string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("voucher with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get voucher %s: %w", id, err)
	}
	return &voucher, nil
}

// Create inserts a voucher; codes are unique.
func (r *GORMVoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	if voucher.ID == "" {
		voucher.ID = uuid.New().String()
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Voucher{}).Where("code = ?", voucher.Code).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check voucher code: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("voucher %s: %w", voucher.Code, ErrDuplicate)
	}
	if err := r.db.WithContext(ctx).Create(voucher).Error; err != nil {
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

// Update saves every field of an existing voucher except its code.
func (r *GORMVoucherRepository) Update(ctx context.Context, voucher *models.Voucher) error {
	res := r.db.WithContext(ctx).Model(&models.Voucher{}).Where("id = ?", voucher.ID).Updates(map[string]interface{}{
		"discount_amount":     voucher.DiscountAmount,
		"discount_percentage": voucher.DiscountPercentage,
		"description":         voucher.Description,
		"expiration_date":     voucher.ExpirationDate,
		"quantity":            voucher.Quantity,
		"is_active":           voucher.IsActive,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update voucher: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("voucher with ID %s: %w", voucher.ID, ErrNotFound)
	}
	return nil
}

// redeemVoucher consumes one use if the voucher is still active and not exhausted.
func redeemVoucher(tx *gorm.DB, code string) error {
	res := tx.Model(&models.Voucher{}).
		Where("code = ? AND quantity > 0 AND is_active = ?", code, true).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to redeem voucher %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("voucher %s: %w", code, ErrVoucherUnavailable)
	}
	return nil
}
