package services

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fixture struct {
	products *repositories.MockProductRepository
	vouchers *repositories.MockVoucherRepository
	orders   *repositories.MockOrderRepository
	pub      *recordingPublisher
	gateway  *payment.VNPay

	voucherSvc  *VoucherService
	checkoutSvc *CheckoutService
	orderSvc    *OrderService

	phone *models.Product
}

var (
	customer    = Actor{ID: "cust-1", Role: models.RoleCustomer}
	otherCust   = Actor{ID: "cust-2", Role: models.RoleCustomer}
	admin       = Actor{ID: "admin-1", Role: models.RoleAdmin}
	shipper     = Actor{ID: "ship-1", Role: models.RoleShipper}
	otherShip   = Actor{ID: "ship-2", Role: models.RoleShipper}
	testDetails = models.CustomerDetails{
		Name:    "Nguyen Van A",
		Phone:   "0900000000",
		Email:   "a@example.com",
		Address: "1 Le Loi, District 1",
	}
)

// newPhone is P1: Red with Storage 128GB (5 left) and 256GB (2 left, +20000),
// and a plain Blue variant with 4 left.
func newPhone() *models.Product {
	return &models.Product{
		Name: "Phone",
		Img:  "phone.png",
		Variants: []models.Variant{
			{
				Color:     "Red",
				BasePrice: 100000,
				SubVariants: []models.SubVariant{
					{Specification: "Storage", Value: "128GB", Quantity: 5},
					{Specification: "Storage", Value: "256GB", AdditionalPrice: 20000, Quantity: 2},
				},
			},
			{Color: "Blue", BasePrice: 90000, Discount: 10, Quantity: 4},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		products: repositories.NewMockProductRepository(),
		vouchers: repositories.NewMockVoucherRepository(),
		pub:      &recordingPublisher{},
		gateway: payment.NewVNPay(payment.VNPayConfig{
			TmnCode:    "TESTTMN1",
			HashSecret: "SECRETKEY",
			PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL:  "http://localhost/order/confirmvnpay",
		}),
	}
	f.orders = repositories.NewMockOrderRepository(f.products, f.vouchers)

	f.phone = newPhone()
	require.NoError(t, f.products.Create(ctx, f.phone))
	require.NoError(t, f.vouchers.Create(ctx, &models.Voucher{
		Code:           "SALE50",
		DiscountAmount: 50000,
		ExpirationDate: time.Now().Add(24 * time.Hour),
		Quantity:       10,
		IsActive:       true,
	}))

	notifier := events.NewNotifier(f.pub)
	f.voucherSvc = NewVoucherService(f.vouchers)
	f.checkoutSvc = NewCheckoutService(f.orders, f.products, f.voucherSvc, f.gateway, notifier)
	f.orderSvc = NewOrderService(f.orders, notifier)
	return f
}

func red128(qty int) cart.Item {
	return cart.Item{
		Quantity:   qty,
		Color:      "Red",
		SubVariant: &cart.SubVariant{Specification: "Storage", Value: "128GB"},
	}
}

func (f *fixture) request(method models.PaymentMethod, items ...cart.Item) CheckoutRequest {
	for i := range items {
		if items[i].ProductID == "" {
			items[i].ProductID = f.phone.ID
		}
	}
	return CheckoutRequest{
		Items:           items,
		PaymentMethod:   method,
		CustomerDetails: testDetails,
	}
}

func (f *fixture) place(t *testing.T, method models.PaymentMethod, items ...cart.Item) *models.Order {
	t.Helper()
	res, err := f.checkoutSvc.PlaceOrder(context.Background(), customer.ID, f.request(method, items...), "127.0.0.1")
	require.NoError(t, err)
	return res.Order
}

// stock returns the counter for color and, when value is set, the Storage sub-variant.
func (f *fixture) stock(t *testing.T, color, value string) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), f.phone.ID)
	require.NoError(t, err)
	v, ok := p.FindVariant(color)
	require.True(t, ok)
	if value == "" {
		return v.Quantity
	}
	sv, ok := v.FindSubVariant("Storage", value)
	require.True(t, ok)
	return sv.Quantity
}

func (f *fixture) vnpayReturn(orderID string, amount int64, code string) url.Values {
	return f.gateway.SignQuery(url.Values{
		"vnp_TxnRef":        {orderID},
		"vnp_Amount":        {strconv.FormatInt(amount*100, 10)},
		"vnp_ResponseCode":  {code},
		"vnp_TransactionNo": {"14000001"},
	})
}
