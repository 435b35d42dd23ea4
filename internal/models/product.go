package models

import "time"

// Product represents a catalog entry. Stock lives on its variants.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string    `json:"name" gorm:"type:varchar(200)" validate:"required,min=2,max=200"`
	Description string    `json:"description" validate:"omitempty,max=2000"`
	Img         string    `json:"img" validate:"omitempty,max=500"`
	Variants    []Variant `json:"variants" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" validate:"required,min=1,dive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Variant is a product configuration distinguished by color. Quantity is the
// stock counter used when no sub-variant is selected.
type Variant struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID   string       `json:"productId" gorm:"index;type:varchar(36)"`
	Color       string       `json:"color" gorm:"type:varchar(64)" validate:"required,max=64"`
	BasePrice   int64        `json:"basePrice" validate:"gte=0"`
	Discount    int          `json:"discount,omitempty" validate:"gte=0,lte=100"` // percent of BasePrice
	Quantity    int          `json:"quantity" validate:"gte=0"`
	SubVariants []SubVariant `json:"subVariants" gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE" validate:"dive"`
}

// SubVariant refines a variant (e.g. storage size) with its own stock and price delta.
type SubVariant struct {
	ID              string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	VariantID       string `json:"variantId" gorm:"index;type:varchar(36)"`
	Specification   string `json:"specification" gorm:"type:varchar(64)" validate:"required,max=64"`
	Value           string `json:"value" gorm:"type:varchar(64)" validate:"required,max=64"`
	AdditionalPrice int64  `json:"additionalPrice" validate:"gte=0"`
	Quantity        int    `json:"quantity" validate:"gte=0"`
}

// FindVariant returns the variant with the given color.
func (p *Product) FindVariant(color string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Color == color {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// FindSubVariant returns the sub-variant matching specification and value.
func (v *Variant) FindSubVariant(specification, value string) (*SubVariant, bool) {
	for i := range v.SubVariants {
		if v.SubVariants[i].Specification == specification && v.SubVariants[i].Value == value {
			return &v.SubVariants[i], true
		}
	}
	return nil, false
}

// UnitPrice is the discounted base price. Sub-variant deltas are added on top.
func (v *Variant) UnitPrice() int64 {
	return v.BasePrice * int64(100-v.Discount) / 100
}
