package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// VoucherResolution is what a valid voucher grants.
type VoucherResolution struct {
	Code               string `json:"code"`
	DiscountAmount     int64  `json:"discountAmount"`
	DiscountPercentage int    `json:"discountPercentage,omitempty"`
	Description        string `json:"description,omitempty"`
}

// VoucherService resolves and manages discount codes.
type VoucherService struct {
	repo repositories.VoucherRepository
	now  func() time.Time
}

func NewVoucherService(repo repositories.VoucherRepository) *VoucherService {
	return &VoucherService{repo: repo, now: time.Now}
}

// ApplyDiscount subtracts a flat discount, never going below zero.
func ApplyDiscount(subtotal, discount int64) int64 {
	if discount >= subtotal {
		return 0
	}
	return subtotal - discount
}

// Resolve checks that code names a usable voucher. It does not redeem it.
func (s *VoucherService) Resolve(ctx context.Context, code string) (*VoucherResolution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrVoucherCodeRequired
	}

	v, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVoucherNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up voucher %s: %w", code, err)
	}

	switch {
	case s.now().After(v.ExpirationDate):
		return nil, fmt.Errorf("%w: %s", ErrVoucherExpired, code)
	case v.Quantity <= 0:
		return nil, fmt.Errorf("%w: %s", ErrVoucherExhausted, code)
	case !v.IsActive:
		return nil, fmt.Errorf("%w: %s", ErrVoucherInactive, code)
	}

	return &VoucherResolution{
		Code:               v.Code,
		DiscountAmount:     v.DiscountAmount,
		DiscountPercentage: v.DiscountPercentage,
		Description:        v.Description,
	}, nil
}

// Apply resolves code and returns the discounted subtotal.
func (s *VoucherService) Apply(ctx context.Context, code string, subtotal int64) (*VoucherResolution, int64, error) {
	res, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	return res, ApplyDiscount(subtotal, res.DiscountAmount), nil
}

// CreateVoucher stores a new voucher.
func (s *VoucherService) CreateVoucher(ctx context.Context, v *models.Voucher) error {
	v.Code = strings.TrimSpace(v.Code)
	if v.Code == "" {
		return ErrVoucherCodeRequired
	}
	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrVoucherExists, v.Code)
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

// UpdateVoucher replaces the terms of the voucher with v.ID. The code is
// fixed at creation and is left as stored.
func (s *VoucherService) UpdateVoucher(ctx context.Context, v *models.Voucher) (*models.Voucher, error) {
	if err := s.repo.Update(ctx, v); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrVoucherNotFound, v.ID)
		}
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}
	updated, err := s.repo.GetByID(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload voucher %s: %w", v.ID, err)
	}
	return updated, nil
}

// ListVouchers returns every voucher.
func (s *VoucherService) ListVouchers(ctx context.Context) ([]models.Voucher, error) {
	return s.repo.GetAll(ctx)
}
