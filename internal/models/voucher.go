package models

import "time"

// Voucher is a discount code with limited uses and an expiration date.
type Voucher struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code               string    `json:"code" gorm:"uniqueIndex;type:varchar(64)" validate:"required,min=2,max=64"`
	DiscountAmount     int64     `json:"discountAmount" validate:"gte=0"`
	DiscountPercentage int       `json:"discountPercentage,omitempty" validate:"gte=0,lte=100"`
	Description        string    `json:"description,omitempty" validate:"omitempty,max=500"`
	ExpirationDate     time.Time `json:"expirationDate" validate:"required"`
	Quantity           int       `json:"quantity" validate:"gte=0"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
