package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/seed"
)

var testVNPay = config.VNPayConfig{
	TmnCode:    "TESTTMN1",
	HashSecret: "SECRETKEY",
	PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
	ReturnURL:  "http://localhost:8080/order/confirmvnpay",
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:    "test_jwt_secret",
		SeedDemoData: true,
		VNPay:        testVNPay,
	}
	logger := logging.NewWithWriter(io.Discard, "error")
	app, err := buildApp(logging.IntoContext(context.Background(), logger), cfg, db, nil, logger)
	require.NoError(t, err)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 && raw[0] == '[' {
		var list []interface{}
		require.NoError(t, json.Unmarshal(raw, &list))
		out["items"] = list
	}
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func registerCustomer(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "customer", body["user"].(map[string]interface{})["role"])
	return login(t, app, username, "password123")
}

// phoneID returns the seeded smartphone, which has Red/128GB with 5 in stock.
func phoneID(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	for _, raw := range body["items"].([]interface{}) {
		p := raw.(map[string]interface{})
		if p["name"] == "Smartphone X" {
			return p["id"].(string)
		}
	}
	t.Fatal("seeded smartphone not found")
	return ""
}

func red128Stock(t *testing.T, app *fiber.App, id string) int {
	t.Helper()
	status, body := call(t, app, http.MethodGet, "/product/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	for _, rv := range body["variants"].([]interface{}) {
		v := rv.(map[string]interface{})
		if v["color"] != "Red" {
			continue
		}
		for _, rs := range v["subVariants"].([]interface{}) {
			sv := rs.(map[string]interface{})
			if sv["value"] == "128GB" {
				return int(sv["quantity"].(float64))
			}
		}
	}
	t.Fatal("Red/128GB not found")
	return 0
}

func checkoutBody(productID string, qty int, method models.PaymentMethod, voucher string) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{{
			"productId":  productID,
			"color":      "Red",
			"quantity":   qty,
			"subVariant": map[string]string{"specification": "Storage", "value": "128GB"},
		}},
		"paymentMethod": method,
		"voucherCode":   voucher,
		"amount":        1,
		"customerDetails": map[string]string{
			"name": "Nguyen Van A", "phone": "0900000000", "email": "a@example.com", "address": "1 Le Loi",
		},
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(t)
	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["messaging"])
}

func TestCashOnDeliveryLifecycle(t *testing.T) {
	app := setupApp(t)
	customer := registerCustomer(t, app, "alice")
	admin := login(t, app, seed.AdminUsername, seed.DemoPassword)
	shipper := login(t, app, seed.ShipperUsername, seed.DemoPassword)
	pid := phoneID(t, app)

	status, body := call(t, app, http.MethodPost, "/order/confirm", customer, checkoutBody(pid, 2, models.PaymentMethodCOD, ""))
	require.Equal(t, http.StatusCreated, status, body)
	order := body["order"].(map[string]interface{})
	id := order["id"].(string)
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "unpaid", order["paymentStatus"])
	assert.Equal(t, float64(20000000), order["amount"], "client amount is ignored")
	assert.Equal(t, 3, red128Stock(t, app, pid))

	// Only 3 left now.
	status, _ = call(t, app, http.MethodPost, "/order/confirm", customer, checkoutBody(pid, 4, models.PaymentMethodCOD, ""))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 3, red128Stock(t, app, pid))

	status, _ = call(t, app, http.MethodPut, "/api/orders/"+id+"/confirm", customer, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodPut, "/api/orders/"+id+"/confirm", admin, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "packaging", body["order"].(map[string]interface{})["status"])

	status, body = call(t, app, http.MethodGet, "/orders-list", shipper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = call(t, app, http.MethodPut, "/orders-list/"+id, shipper, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["order"].(map[string]interface{})["shipperId"])

	status, body = call(t, app, http.MethodPut, "/orders-list/"+id, shipper, map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "paid", body["order"].(map[string]interface{})["paymentStatus"])

	status, body = call(t, app, http.MethodPut, "/orders/"+id+"/confirm-receive", customer, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "confirm-receive", body["order"].(map[string]interface{})["status"])

	status, body = call(t, app, http.MethodGet, "/orders", customer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)
}

func TestCancelReturnsStock(t *testing.T) {
	app := setupApp(t)
	customer := registerCustomer(t, app, "bob")
	other := registerCustomer(t, app, "carol")
	pid := phoneID(t, app)

	status, body := call(t, app, http.MethodPost, "/order/confirm", customer, checkoutBody(pid, 2, models.PaymentMethodCOD, "SALE50"))
	require.Equal(t, http.StatusCreated, status, body)
	order := body["order"].(map[string]interface{})
	id := order["id"].(string)
	assert.Equal(t, float64(20000000-50000), order["amount"])

	status, _ = call(t, app, http.MethodPut, "/orders/"+id+"/cancel", customer, map[string]string{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPut, "/orders/"+id+"/cancel", other, map[string]string{"reason": "mine now"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodPut, "/orders/"+id+"/cancel", customer, map[string]string{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, status, body)
	cancel := body["order"].(map[string]interface{})["cancelReason"].(map[string]interface{})
	assert.Equal(t, "changed my mind", cancel["reason"])
	assert.NotEmpty(t, cancel["canceledAt"])
	assert.Equal(t, 5, red128Stock(t, app, pid))
}

func TestVNPayCheckout(t *testing.T) {
	app := setupApp(t)
	customer := registerCustomer(t, app, "dave")
	admin := login(t, app, seed.AdminUsername, seed.DemoPassword)
	pid := phoneID(t, app)

	status, body := call(t, app, http.MethodPost, "/create-payment", customer, checkoutBody(pid, 1, "", ""))
	require.Equal(t, http.StatusCreated, status, body)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "awaiting_payment", order["paymentStatus"])
	require.NotEmpty(t, body["paymentUrl"])

	gw := payment.NewVNPay(payment.VNPayConfig{HashSecret: testVNPay.HashSecret})
	q := gw.SignQuery(url.Values{
		"vnp_TxnRef":        {order["id"].(string)},
		"vnp_Amount":        {strconv.FormatInt(int64(order["amount"].(float64))*100, 10)},
		"vnp_ResponseCode":  {"00"},
		"vnp_TransactionNo": {"14000001"},
	})

	tampered := url.Values{}
	for k, v := range q {
		tampered[k] = v
	}
	tampered.Set("vnp_Amount", "100")
	status, _ = call(t, app, http.MethodGet, "/order/confirmvnpay?"+tampered.Encode(), "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPut, "/api/orders/"+order["id"].(string)+"/confirm", admin, nil)
	assert.Equal(t, http.StatusConflict, status, "unpaid online orders cannot be confirmed")

	status, body = call(t, app, http.MethodGet, "/order/confirmvnpay?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "paid", body["order"].(map[string]interface{})["paymentStatus"])

	status, _ = call(t, app, http.MethodGet, "/order/confirmvnpay?"+q.Encode(), "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodPut, "/api/orders/"+order["id"].(string)+"/confirm", admin, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "packaging", body["order"].(map[string]interface{})["status"])
}
