package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Preload("Variants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("color")
	}).Preload("Variants.SubVariants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("specification, value")
	})
}

// GetAll retrieves all products with their variants.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := preloadVariants(r.db.WithContext(ctx)).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product and its current stock.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := preloadVariants(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create inserts a product together with its variants and sub-variants.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	assignProductIDs(product)
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update replaces the product's fields and variant tree. Variants and
// sub-variants missing from the new tree are removed; ids that belong to
// another product or variant are treated as new rows.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"img":         product.Img,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
		}

		var current []models.Variant
		if err := tx.Preload("SubVariants").Where("product_id = ?", product.ID).Find(&current).Error; err != nil {
			return fmt.Errorf("failed to load variants: %w", err)
		}
		dropForeignIDs(product, current)
		assignProductIDs(product)

		keepVariants := make([]string, 0, len(product.Variants))
		for i := range product.Variants {
			v := &product.Variants[i]
			if err := tx.Omit(clause.Associations).Save(v).Error; err != nil {
				return fmt.Errorf("failed to save variant %s: %w", v.Color, err)
			}
			keepVariants = append(keepVariants, v.ID)

			keepSubs := make([]string, 0, len(v.SubVariants))
			for j := range v.SubVariants {
				if err := tx.Save(&v.SubVariants[j]).Error; err != nil {
					return fmt.Errorf("failed to save sub-variant: %w", err)
				}
				keepSubs = append(keepSubs, v.SubVariants[j].ID)
			}
			del := tx.Where("variant_id = ?", v.ID)
			if len(keepSubs) > 0 {
				del = del.Where("id NOT IN ?", keepSubs)
			}
			if err := del.Delete(&models.SubVariant{}).Error; err != nil {
				return fmt.Errorf("failed to prune sub-variants: %w", err)
			}
		}

		var stale []string
		q := tx.Model(&models.Variant{}).Where("product_id = ?", product.ID)
		if len(keepVariants) > 0 {
			q = q.Where("id NOT IN ?", keepVariants)
		}
		if err := q.Pluck("id", &stale).Error; err != nil {
			return fmt.Errorf("failed to list stale variants: %w", err)
		}
		if len(stale) > 0 {
			if err := tx.Where("variant_id IN ?", stale).Delete(&models.SubVariant{}).Error; err != nil {
				return fmt.Errorf("failed to delete stale sub-variants: %w", err)
			}
			if err := tx.Where("id IN ?", stale).Delete(&models.Variant{}).Error; err != nil {
				return fmt.Errorf("failed to delete stale variants: %w", err)
			}
		}
		return nil
	})
}

// Delete deletes a product and its variants.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variantIDs []string
		if err := tx.Model(&models.Variant{}).Where("product_id = ?", id).Pluck("id", &variantIDs).Error; err != nil {
			return fmt.Errorf("failed to list variants: %w", err)
		}
		if len(variantIDs) > 0 {
			if err := tx.Where("variant_id IN ?", variantIDs).Delete(&models.SubVariant{}).Error; err != nil {
				return fmt.Errorf("failed to delete sub-variants: %w", err)
			}
			if err := tx.Where("id IN ?", variantIDs).Delete(&models.Variant{}).Error; err != nil {
				return fmt.Errorf("failed to delete variants: %w", err)
			}
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// decrementStock applies "quantity = quantity - n WHERE quantity >= n" per line.
// The first line that matches no row aborts with ErrStockConflict.
func decrementStock(tx *gorm.DB, lines []StockLine) error {
	if err := checkStockLines(lines); err != nil {
		return err
	}
	for i, l := range lines {
		var res *gorm.DB
		if l.SubVariantID != "" {
			res = tx.Model(&models.SubVariant{}).
				Where("id = ? AND variant_id = ? AND quantity >= ?", l.SubVariantID, l.VariantID, l.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", l.Quantity))
		} else {
			res = tx.Model(&models.Variant{}).
				Where("id = ? AND quantity >= ?", l.VariantID, l.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", l.Quantity))
		}
		if res.Error != nil {
			return fmt.Errorf("failed to decrement stock for product %s: %w", l.ProductID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("line %d (product %s): %w", i, l.ProductID, ErrStockConflict)
		}
	}
	return nil
}

// incrementStock is the inverse of decrementStock. Counters that no longer
// exist are skipped.
func incrementStock(tx *gorm.DB, lines []StockLine) error {
	if err := checkStockLines(lines); err != nil {
		return err
	}
	for _, l := range lines {
		var res *gorm.DB
		if l.SubVariantID != "" {
			res = tx.Model(&models.SubVariant{}).
				Where("id = ? AND variant_id = ?", l.SubVariantID, l.VariantID).
				UpdateColumn("quantity", gorm.Expr("quantity + ?", l.Quantity))
		} else {
			res = tx.Model(&models.Variant{}).
				Where("id = ?", l.VariantID).
				UpdateColumn("quantity", gorm.Expr("quantity + ?", l.Quantity))
		}
		if res.Error != nil {
			return fmt.Errorf("failed to return stock for product %s: %w", l.ProductID, res.Error)
		}
	}
	return nil
}

// dropForeignIDs clears every variant and sub-variant id in p that is not
// already stored under p (or is repeated), so saving it cannot move rows.
func dropForeignIDs(p *models.Product, current []models.Variant) {
	owned := make(map[string]map[string]bool, len(current))
	for _, v := range current {
		subs := make(map[string]bool, len(v.SubVariants))
		for _, s := range v.SubVariants {
			subs[s.ID] = true
		}
		owned[v.ID] = subs
	}

	seen := make(map[string]bool)
	for i := range p.Variants {
		v := &p.Variants[i]
		subs, ok := owned[v.ID]
		if !ok || seen[v.ID] {
			v.ID = ""
			subs = nil
		} else {
			seen[v.ID] = true
		}
		for j := range v.SubVariants {
			s := &v.SubVariants[j]
			if !subs[s.ID] || seen[s.ID] {
				s.ID = ""
			} else {
				seen[s.ID] = true
			}
		}
	}
}

func assignProductIDs(p *models.Product) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		v.ProductID = p.ID
		for j := range v.SubVariants {
			s := &v.SubVariants[j]
			if s.ID == "" {
				s.ID = uuid.New().String()
			}
			s.VariantID = v.ID
		}
	}
}
