package models

import "time"

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPackaging      OrderStatus = "packaging"
	OrderStatusInProgress     OrderStatus = "in_progress"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusConfirmReceive OrderStatus = "confirm-receive"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusFailed         OrderStatus = "failed"
)

// PaymentStatus tracks money collection independently of fulfilment.
type PaymentStatus string

const (
	PaymentStatusUnpaid          PaymentStatus = "unpaid"
	PaymentStatusAwaitingPayment PaymentStatus = "awaiting_payment"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusFailed          PaymentStatus = "failed"
)

// PaymentMethod selects the payment gateway used at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cash_on_delivery"
	PaymentMethodVNPay PaymentMethod = "vnpay"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodVNPay
}

// CustomerDetails is the shipping contact entered at checkout.
type CustomerDetails struct {
	Name    string `json:"name" gorm:"type:varchar(200)"`
	Phone   string `json:"phone" gorm:"type:varchar(32)"`
	Email   string `json:"email" gorm:"type:varchar(255)"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// CancelInfo is set when an order is cancelled.
type CancelInfo struct {
	Reason string     `json:"reason,omitempty"`
	At     *time.Time `json:"canceledAt,omitempty"`
	By     string     `json:"canceledBy,omitempty" gorm:"type:varchar(36)"`
}

// OrderItem is a purchased cart line with the price charged for it.
type OrderItem struct {
	ID            uint   `json:"-" gorm:"primaryKey"`
	OrderID       string `json:"-" gorm:"index;type:varchar(36)"`
	ProductID     string `json:"productId" gorm:"type:varchar(36)"`
	VariantID     string `json:"variantId" gorm:"type:varchar(36)"`
	SubVariantID  string `json:"subVariantId,omitempty" gorm:"type:varchar(36)"`
	Name          string `json:"name"`
	Img           string `json:"img,omitempty"`
	Color         string `json:"color"`
	Specification string `json:"specification,omitempty"`
	Value         string `json:"value,omitempty"`
	Price         int64  `json:"price"` // unit price at the time of order
	Quantity      int    `json:"quantity"`
}

// LineTotal is Price × Quantity.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"userId" gorm:"index;type:varchar(36)"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal        int64           `json:"subtotal"`
	DiscountAmount  int64           `json:"discountAmount"`
	VoucherCode     string          `json:"voucherCode,omitempty" gorm:"type:varchar(64)"`
	Amount          int64           `json:"amount"` // final charged total
	PaymentMethod   PaymentMethod   `json:"paymentMethod" gorm:"type:varchar(32)"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(32)"`
	TransactionNo   string          `json:"transactionNo,omitempty" gorm:"type:varchar(64)"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(32);index"`
	CustomerDetails CustomerDetails `json:"customerDetails" gorm:"embedded;embeddedPrefix:customer_"`
	CancelReason    CancelInfo      `json:"cancelReason" gorm:"embedded;embeddedPrefix:cancel_"`
	ConfirmedAt     *time.Time      `json:"confirmedAt,omitempty"`
	ConfirmedBy     string          `json:"confirmedBy,omitempty" gorm:"type:varchar(36)"`
	ShipperID       string          `json:"shipperId,omitempty" gorm:"index;type:varchar(36)"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
