package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// MockOrderRepository shares its lock to commit stock atomically.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns all products ordered by name.
func (r *MockProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, cloneProduct(p))
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].Name < productList[j].Name })
	return productList, nil
}

// GetByID returns a copy of the product.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	p := cloneProduct(product)
	return &p, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	assignProductIDs(product)
	if _, ok := r.products[product.ID]; ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrDuplicate)
	}
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Update replaces an existing product.
func (r *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	dropForeignIDs(product, existing.Variants)
	assignProductIDs(product)
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

// counterLocked returns a pointer to the stored quantity addressed by l.
// Callers must hold r.mu for writing.
func (r *MockProductRepository) counterLocked(l StockLine) *int {
	p, ok := r.products[l.ProductID]
	if !ok {
		return nil
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID != l.VariantID {
			continue
		}
		if l.SubVariantID == "" {
			return &v.Quantity
		}
		for j := range v.SubVariants {
			if v.SubVariants[j].ID == l.SubVariantID {
				return &v.SubVariants[j].Quantity
			}
		}
	}
	return nil
}

// decrementLocked checks every line before touching any counter so a
// failure leaves stock unchanged. Callers must hold r.mu for writing.
func (r *MockProductRepository) decrementLocked(lines []StockLine) error {
	if err := checkStockLines(lines); err != nil {
		return err
	}
	need := make(map[*int]int, len(lines))
	for i, l := range lines {
		q := r.counterLocked(l)
		if q == nil || *q < need[q]+l.Quantity {
			return fmt.Errorf("line %d (product %s): %w", i, l.ProductID, ErrStockConflict)
		}
		need[q] += l.Quantity
	}
	for q, n := range need {
		*q -= n
	}
	return nil
}

func cloneProduct(p models.Product) models.Product {
	out := p
	out.Variants = make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		out.Variants[i] = v
		out.Variants[i].SubVariants = append([]models.SubVariant(nil), v.SubVariants...)
	}
	return out
}
