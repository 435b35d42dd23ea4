package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/lifecycle"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

// CheckoutRequest is the cart and shipping form submitted at checkout.
// Amount is what the client displayed; it is never charged.
type CheckoutRequest struct {
	Items           []cart.Item            `json:"items" validate:"dive"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod"`
	CustomerDetails models.CustomerDetails `json:"customerDetails"`
	VoucherCode     string                 `json:"voucherCode,omitempty"`
	Amount          int64                  `json:"amount,omitempty"`
}

// CheckoutResult is the placed order and, for online payment, where to send the customer.
type CheckoutResult struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"paymentUrl,omitempty"`
}

// PaymentGateway is the redirect payment provider.
type PaymentGateway interface {
	BuildPaymentURL(order *models.Order, clientIP string, now time.Time) (string, error)
	VerifyReturn(query url.Values) (payment.ReturnResult, error)
}

// CheckoutService turns carts into orders and reconciles online payments.
type CheckoutService struct {
	inventory *InventoryValidator
	vouchers  *VoucherService
	orders    repositories.OrderRepository
	gateway   PaymentGateway
	notifier  *events.Notifier
	now       func() time.Time
}

// NewCheckoutService creates a CheckoutService. A nil gateway disables online payment.
func NewCheckoutService(
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	vouchers *VoucherService,
	gateway PaymentGateway,
	notifier *events.Notifier,
) *CheckoutService {
	return &CheckoutService{
		inventory: NewInventoryValidator(products),
		vouchers:  vouchers,
		orders:    orders,
		gateway:   gateway,
		notifier:  notifier,
		now:       time.Now,
	}
}

// PlaceOrder validates the cart against live stock, prices it, and commits
// the order together with its stock and voucher decrements.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID string, req CheckoutRequest, clientIP string) (*CheckoutResult, error) {
	log := logging.FromContext(ctx)

	details := trimDetails(req.CustomerDetails)
	if details.Name == "" || details.Phone == "" || details.Email == "" || details.Address == "" {
		return nil, ErrMissingCustomerDetails
	}
	if req.PaymentMethod == "" {
		return nil, ErrMissingPaymentMethod
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, req.PaymentMethod)
	}
	if req.PaymentMethod == models.PaymentMethodVNPay && s.gateway == nil {
		return nil, fmt.Errorf("%w: %s is not configured", ErrUnsupportedPaymentMethod, req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	c, err := cart.Normalize(req.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCartItem, err)
	}

	lines, err := s.inventory.Validate(ctx, c.Items)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	stock := make([]repositories.StockLine, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		items = append(items, l.Item)
		stock = append(stock, l.Stock)
		subtotal += l.Item.LineTotal()
	}

	var discount int64
	voucherCode := strings.TrimSpace(req.VoucherCode)
	if voucherCode != "" {
		res, err := s.vouchers.Resolve(ctx, voucherCode)
		if err != nil {
			return nil, err
		}
		voucherCode = res.Code
		discount = subtotal - ApplyDiscount(subtotal, res.DiscountAmount)
	}
	amount := subtotal - discount
	if req.Amount != 0 && req.Amount != amount {
		log.Warn("client amount differs from server total, charging server total",
			"user_id", userID, "client_amount", req.Amount, "amount", amount)
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		VoucherCode:     voucherCode,
		Amount:          amount,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusUnpaid,
		Status:          models.OrderStatusPending,
		CustomerDetails: details,
	}
	if req.PaymentMethod == models.PaymentMethodVNPay {
		order.PaymentStatus = models.PaymentStatusAwaitingPayment
	}

	if err := s.orders.Create(ctx, order, stock, voucherCode); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStockConflict):
			return nil, fmt.Errorf("%w: %v", ErrStockRaceLost, err)
		case errors.Is(err, repositories.ErrVoucherUnavailable):
			return nil, fmt.Errorf("%w: %s", ErrVoucherExhausted, voucherCode)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	log.Info("order placed", "order_id", order.ID, "user_id", userID, "amount", order.Amount,
		"payment_method", order.PaymentMethod, "items", len(order.Items))
	s.notifier.OrderCreated(ctx, order)

	result := &CheckoutResult{Order: order}
	if req.PaymentMethod == models.PaymentMethodVNPay {
		// The order stays awaiting payment if this fails; nothing is rolled back.
		paymentURL, err := s.gateway.BuildPaymentURL(order, clientIP, s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to build payment url for order %s: %w", order.ID, err)
		}
		result.PaymentURL = paymentURL
	}
	return result, nil
}

// HandleVNPayReturn verifies a provider callback and records the payment outcome.
// Callbacks for an order whose outcome is already recorded are no-ops.
func (s *CheckoutService) HandleVNPayReturn(ctx context.Context, query url.Values) (*models.Order, payment.ReturnResult, error) {
	log := logging.FromContext(ctx)
	if s.gateway == nil {
		return nil, payment.ReturnResult{}, fmt.Errorf("%w: vnpay is not configured", ErrUnsupportedPaymentMethod)
	}

	res, err := s.gateway.VerifyReturn(query)
	if err != nil {
		log.Warn("rejected payment callback", "error", err)
		return nil, res, err
	}

	order, err := s.orders.GetByID(ctx, res.TxnRef)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, res, fmt.Errorf("%w: %s", ErrOrderNotFound, res.TxnRef)
	}
	if err != nil {
		return nil, res, fmt.Errorf("failed to load order %s: %w", res.TxnRef, err)
	}
	if res.Amount != order.Amount {
		log.Warn("payment amount mismatch", "order_id", order.ID, "paid", res.Amount, "amount", order.Amount)
		return nil, res, fmt.Errorf("%w: paid %d, order %d", ErrPaymentAmountMismatch, res.Amount, order.Amount)
	}

	target := models.PaymentStatusFailed
	if res.Success() {
		target = models.PaymentStatusPaid
	}
	switch order.PaymentStatus {
	case models.PaymentStatusPaid, target:
		return order, res, nil
	case models.PaymentStatusAwaitingPayment, models.PaymentStatusFailed:
	default:
		return nil, res, fmt.Errorf("%w: %s is %s", ErrPaymentNotExpected, order.ID, order.PaymentStatus)
	}
	if lifecycle.IsTerminal(order.Status) {
		log.Warn("payment callback for a closed order", "order_id", order.ID, "status", order.Status,
			"response_code", res.ResponseCode, "transaction_no", res.TransactionNo)
		return nil, res, fmt.Errorf("%w: %s is %s", ErrPaymentNotExpected, order.ID, order.Status)
	}

	from := order.PaymentStatus
	if err := s.orders.UpdatePayment(ctx, order.ID, from, target, res.TransactionNo); err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			// A concurrent callback recorded an outcome first.
			current, gerr := s.orders.GetByID(ctx, order.ID)
			if gerr == nil && current.PaymentStatus == target {
				return current, res, nil
			}
			return nil, res, fmt.Errorf("%w: %v", ErrStatusConflict, err)
		}
		return nil, res, fmt.Errorf("failed to record payment for order %s: %w", order.ID, err)
	}
	order.PaymentStatus = target
	order.TransactionNo = res.TransactionNo

	log.Info("payment recorded", "order_id", order.ID, "payment_status", target,
		"response_code", res.ResponseCode, "transaction_no", res.TransactionNo)
	if target == models.PaymentStatusPaid {
		s.notifier.Paid(ctx, order)
	}
	return order, res, nil
}

func trimDetails(d models.CustomerDetails) models.CustomerDetails {
	return models.CustomerDetails{
		Name:    strings.TrimSpace(d.Name),
		Phone:   strings.TrimSpace(d.Phone),
		Email:   strings.TrimSpace(d.Email),
		Address: strings.TrimSpace(d.Address),
		Notes:   strings.TrimSpace(d.Notes),
	}
}
