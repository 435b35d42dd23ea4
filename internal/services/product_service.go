package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products with their variants.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, err
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := checkColorsUnique(product); err != nil {
		return err
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct replaces a product's fields and variant tree. Quantities in
// the payload become the new stock, which is how admins restock.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := checkColorsUnique(product); err != nil {
		return err
	}
	err := s.repo.Update(ctx, product)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrProductNotFound, product.ID)
	}
	return err
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return err
}

// Variants are addressed by color and sub-variants by specification and
// value, so both must be unique within their parent.
func checkColorsUnique(p *models.Product) error {
	colors := make(map[string]bool, len(p.Variants))
	for _, v := range p.Variants {
		if colors[v.Color] {
			return fmt.Errorf("%w: duplicate color %q", ErrDuplicateVariant, v.Color)
		}
		colors[v.Color] = true
		subs := make(map[string]bool, len(v.SubVariants))
		for _, sv := range v.SubVariants {
			k := sv.Specification + "=" + sv.Value
			if subs[k] {
				return fmt.Errorf("%w: duplicate %s for color %q", ErrDuplicateVariant, k, v.Color)
			}
			subs[k] = true
		}
	}
	return nil
}
