package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// LineRequest is one requested cart line.
type LineRequest = cart.Item

// ValidatedLine is a cart line priced from live product data.
type ValidatedLine struct {
	Item      models.OrderItem
	Available int
	Stock     repositories.StockLine
}

// InventoryValidator checks requested lines against current stock. It never writes.
type InventoryValidator struct {
	products repositories.ProductRepository
}

func NewInventoryValidator(products repositories.ProductRepository) *InventoryValidator {
	return &InventoryValidator{products: products}
}

// Validate resolves every line to its stock counter and price. Any failing
// line rejects the whole request.
func (v *InventoryValidator) Validate(ctx context.Context, lines []LineRequest) ([]ValidatedLine, error) {
	loaded := make(map[string]*models.Product)
	out := make([]ValidatedLine, 0, len(lines))

	for _, l := range lines {
		p, ok := loaded[l.ProductID]
		if !ok {
			var err error
			p, err = v.products.GetByID(ctx, l.ProductID)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, l.ProductID)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load product %s: %w", l.ProductID, err)
			}
			loaded[l.ProductID] = p
		}

		variant, ok := p.FindVariant(l.Color)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no color %q", ErrVariantNotFound, p.Name, l.Color)
		}

		item := models.OrderItem{
			ProductID: p.ID,
			VariantID: variant.ID,
			Name:      p.Name,
			Img:       p.Img,
			Color:     variant.Color,
			Price:     variant.UnitPrice(),
			Quantity:  l.Quantity,
		}
		available := variant.Quantity

		if l.SubVariant != nil {
			sub, ok := variant.FindSubVariant(l.SubVariant.Specification, l.SubVariant.Value)
			if !ok {
				return nil, fmt.Errorf("%w: %s %s has no %s=%s", ErrSubVariantNotFound,
					p.Name, variant.Color, l.SubVariant.Specification, l.SubVariant.Value)
			}
			item.SubVariantID = sub.ID
			item.Specification = sub.Specification
			item.Value = sub.Value
			item.Price += sub.AdditionalPrice
			available = sub.Quantity
		}

		if available < l.Quantity {
			return nil, fmt.Errorf("%w: %s (requested: %d, available: %d)", ErrInsufficientStock, p.Name, l.Quantity, available)
		}

		out = append(out, ValidatedLine{
			Item:      item,
			Available: available,
			Stock: repositories.StockLine{
				ProductID:    item.ProductID,
				VariantID:    item.VariantID,
				SubVariantID: item.SubVariantID,
				Quantity:     item.Quantity,
			},
		})
	}
	return out, nil
}
