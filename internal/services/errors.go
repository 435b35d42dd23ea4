package services

import (
	"errors"
	"fmt"

	"storefront/internal/lifecycle"
	"storefront/internal/payment"
)

// Inventory.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrVariantNotFound    = errors.New("variant not found")
	ErrSubVariantNotFound = errors.New("sub-variant not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrDuplicateVariant   = errors.New("duplicate variant")
	// ErrStockRaceLost means stock was sufficient at validation but not at
	// commit. It matches ErrInsufficientStock.
	ErrStockRaceLost = fmt.Errorf("%w: stock changed during checkout", ErrInsufficientStock)
)

// Vouchers.
var (
	ErrVoucherCodeRequired = errors.New("voucher code is required")
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrVoucherExpired      = errors.New("voucher has expired")
	ErrVoucherExhausted    = errors.New("voucher has no remaining uses")
	ErrVoucherInactive     = errors.New("voucher is not active")
	ErrVoucherExists       = errors.New("voucher code already exists")
)

// Checkout.
var (
	ErrMissingCustomerDetails   = errors.New("name, phone, email and address are required")
	ErrMissingPaymentMethod     = errors.New("payment method is required")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInvalidCartItem          = errors.New("invalid cart item")
)

// Orders.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrNotOrderOwner        = errors.New("order belongs to another customer")
	ErrNotAssignedShipper   = errors.New("order is assigned to another shipper")
	ErrCancelReasonRequired = errors.New("cancel reason is required")
	ErrStatusConflict       = errors.New("order was modified concurrently")
	ErrUnknownStatus        = errors.New("unknown order status")
	ErrInvalidTransition    = lifecycle.ErrInvalidTransition
	ErrTransitionForbidden  = lifecycle.ErrTransitionForbidden
)

// Payments.
var (
	ErrInvalidSignature      = payment.ErrInvalidSignature
	ErrMalformedPayment      = payment.ErrMalformedReturn
	ErrPaymentAmountMismatch = errors.New("paid amount does not match order amount")
	ErrPaymentNotExpected    = errors.New("order is not awaiting online payment")
	ErrPaymentPending        = errors.New("online payment has not been completed")
)

// Auth.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidRole        = errors.New("invalid role")
)
