// Package seed loads demo data: a small catalog, the SALE50 voucher and one
// admin and one shipper account.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// Demo account credentials.
const (
	AdminUsername   = "admin"
	ShipperUsername = "shipper"
	DemoPassword    = "password123"
)

func demoProducts() []models.Product {
	return []models.Product{
		{
			Name:        "Smartphone X",
			Description: "6.1 inch display, dual camera",
			Img:         "/images/smartphone-x.png",
			Variants: []models.Variant{
				{
					Color:     "Red",
					BasePrice: 10000000,
					SubVariants: []models.SubVariant{
						{Specification: "Storage", Value: "128GB", Quantity: 5},
						{Specification: "Storage", Value: "256GB", AdditionalPrice: 2000000, Quantity: 3},
					},
				},
				{
					Color:     "Black",
					BasePrice: 10000000,
					Discount:  10,
					SubVariants: []models.SubVariant{
						{Specification: "Storage", Value: "128GB", Quantity: 8},
					},
				},
			},
		},
		{
			Name:        "Wireless Earbuds",
			Description: "Noise cancelling, 24h battery",
			Img:         "/images/earbuds.png",
			Variants: []models.Variant{
				{Color: "White", BasePrice: 1500000, Quantity: 20},
				{Color: "Black", BasePrice: 1500000, Discount: 5, Quantity: 12},
			},
		},
	}
}

// Demo creates the demo data. Existing vouchers and accounts are left alone;
// products are only seeded into an empty catalog.
func Demo(ctx context.Context, products repositories.ProductRepository, vouchers repositories.VoucherRepository, auth *services.AuthService) error {
	log := logging.FromContext(ctx)

	existing, err := products.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: list products: %w", err)
	}
	if len(existing) == 0 {
		for _, p := range demoProducts() {
			p := p
			if err := products.Create(ctx, &p); err != nil {
				return fmt.Errorf("seed: product %s: %w", p.Name, err)
			}
			log.Info("seeded product", "product_id", p.ID, "name", p.Name)
		}
	}

	voucher := &models.Voucher{
		Code:               "SALE50",
		DiscountAmount:     50000,
		DiscountPercentage: 0,
		Description:        "50.000 VND off your order",
		ExpirationDate:     time.Now().AddDate(1, 0, 0),
		Quantity:           100,
		IsActive:           true,
	}
	if err := vouchers.Create(ctx, voucher); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("seed: voucher: %w", err)
	}

	for _, u := range []models.User{
		{Username: AdminUsername, Email: "admin@example.com", Password: DemoPassword, Role: models.RoleAdmin},
		{Username: ShipperUsername, Email: "shipper@example.com", Password: DemoPassword, Role: models.RoleShipper},
	} {
		u := u
		if err := auth.RegisterUser(ctx, &u); err != nil {
			if errors.Is(err, services.ErrUserExists) {
				continue
			}
			return fmt.Errorf("seed: user %s: %w", u.Username, err)
		}
		log.Info("seeded user", "username", u.Username, "role", u.Role)
	}
	return nil
}
