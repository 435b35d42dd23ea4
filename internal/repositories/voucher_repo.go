package repositories

import (
	"context"

	"storefront/internal/models"
)

// VoucherRepository defines the interface for voucher data access.
type VoucherRepository interface {
	GetAll(ctx context.Context) ([]models.Voucher, error)
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	GetByID(ctx context.Context, id string) (*models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
	Update(ctx context.Context, voucher *models.Voucher) error
}
