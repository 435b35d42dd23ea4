package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app      *fiber.App
	auth     *services.AuthService
	products repositories.ProductRepository
	phone    *models.Product
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	v := viper.New()
	v.SetDefault("JWT_SECRET", "test_jwt_secret")
	v.AutomaticEnv()

	db, err := database.OpenInMemory()
	require.NoError(t, err)

	productRepo := repositories.NewGORMProductRepository(db)
	voucherRepo := repositories.NewGORMVoucherRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	authService := services.NewAuthService(userRepo, v.GetString("JWT_SECRET"))
	voucherService := services.NewVoucherService(voucherRepo)
	checkoutService := services.NewCheckoutService(orderRepo, productRepo, voucherService, nil, nil)
	orderService := services.NewOrderService(orderRepo, nil)

	app := fiber.New()
	auth := middleware.AuthRequired(authService)
	handlers.NewAuthHandler(authService).RegisterRoutes(app.Group("/api/v1"))
	handlers.NewProductHandler(services.NewProductService(productRepo)).RegisterRoutes(app, auth)
	handlers.NewVoucherHandler(voucherService).RegisterRoutes(app, auth)
	handlers.NewCheckoutHandler(checkoutService).RegisterRoutes(app, auth)
	handlers.NewOrderHandler(orderService).RegisterRoutes(app, auth)
	handlers.NewHealthHandler(nil, false).RegisterRoutes(app)

	ctx := context.Background()
	phone := &models.Product{
		Name: "Phone",
		Variants: []models.Variant{{
			Color:     "Red",
			BasePrice: 100000,
			SubVariants: []models.SubVariant{
				{Specification: "Storage", Value: "128GB", Quantity: 5},
			},
		}},
	}
	require.NoError(t, productRepo.Create(ctx, phone))
	require.NoError(t, voucherRepo.Create(ctx, &models.Voucher{
		Code: "SALE50", DiscountAmount: 50000, ExpirationDate: time.Now().Add(time.Hour), Quantity: 1, IsActive: true,
	}))
	require.NoError(t, voucherRepo.Create(ctx, &models.Voucher{
		Code: "EXPIRED", DiscountAmount: 50000, ExpirationDate: time.Now().Add(-time.Hour), Quantity: 1, IsActive: true,
	}))

	return &testEnv{app: app, auth: authService, products: productRepo, phone: phone}
}

func (e *testEnv) token(t *testing.T, username string, role models.Role) string {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "password123", Role: role}
	require.NoError(t, e.auth.RegisterUser(context.Background(), u))
	tok, err := e.auth.IssueToken(u)
	require.NoError(t, err)
	return tok
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '[' {
		var list []interface{}
		require.NoError(t, json.Unmarshal(raw, &list))
		out["items"] = list
	} else {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)

	user := map[string]string{"username": "testuser", "email": "test@example.com", "password": "password123", "role": "admin"}
	status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/auth/register", "", user)
	require.Equal(t, http.StatusCreated, status)
	registered := body["user"].(map[string]interface{})
	assert.Equal(t, "customer", registered["role"], "public registration cannot pick a role")
	assert.Nil(t, registered["password"])

	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/register", "", user)
	assert.Equal(t, http.StatusConflict, status)

	status, body = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "x", "email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Contains(t, body["errors"], "Email")

	status, body = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "testuser", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "testuser", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProductAdmin(t *testing.T) {
	env := setupApp(t)
	admin := env.token(t, "boss", models.RoleAdmin)
	customer := env.token(t, "buyer", models.RoleCustomer)

	newProduct := map[string]interface{}{
		"name": "Tablet",
		"variants": []map[string]interface{}{
			{"color": "Silver", "basePrice": 5000000, "quantity": 3},
		},
	}
	status, _ := doJSON(t, env.app, http.MethodPost, "/api/products", "", newProduct)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/products", customer, newProduct)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := doJSON(t, env.app, http.MethodPost, "/api/products", admin, newProduct)
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)

	status, body = doJSON(t, env.app, http.MethodPost, "/api/products", admin, map[string]interface{}{"name": "No variants"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "Variants")

	// Restock through update.
	restock := map[string]interface{}{
		"name": "Tablet",
		"variants": []map[string]interface{}{
			{"color": "Silver", "basePrice": 5000000, "quantity": 10},
		},
	}
	status, body = doJSON(t, env.app, http.MethodPut, "/api/products/"+id, admin, restock)
	require.Equal(t, http.StatusOK, status, body)
	variants := body["variants"].([]interface{})
	require.Len(t, variants, 1)
	assert.Equal(t, float64(10), variants[0].(map[string]interface{})["quantity"])

	status, _ = doJSON(t, env.app, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVoucherApply(t *testing.T) {
	env := setupApp(t)
	customer := env.token(t, "buyer", models.RoleCustomer)

	status, body := doJSON(t, env.app, http.MethodPost, "/voucher/apply", customer, map[string]interface{}{"code": "SALE50", "subtotal": 100000})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(50000), body["total"])

	tests := []struct {
		code string
		want int
	}{
		{"", http.StatusBadRequest},
		{"NOPE", http.StatusNotFound},
		{"EXPIRED", http.StatusConflict},
	}
	for _, tt := range tests {
		status, _ := doJSON(t, env.app, http.MethodPost, "/voucher/apply", customer, map[string]interface{}{"code": tt.code, "subtotal": 100000})
		assert.Equal(t, tt.want, status, "code %q", tt.code)
	}

	status, _ = doJSON(t, env.app, http.MethodPost, "/voucher/apply", "", map[string]interface{}{"code": "SALE50", "subtotal": 1})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestVoucherAdmin(t *testing.T) {
	env := setupApp(t)
	admin := env.token(t, "boss", models.RoleAdmin)

	status, body := doJSON(t, env.app, http.MethodPost, "/api/vouchers", admin, map[string]interface{}{
		"code": "TET2025", "discountAmount": 20000, "quantity": 5,
	})
	assert.Equal(t, http.StatusBadRequest, status, "expirationDate is required")
	assert.Contains(t, body["errors"], "ExpirationDate")

	status, body = doJSON(t, env.app, http.MethodPost, "/api/vouchers", admin, map[string]interface{}{
		"code": "TET2025", "discountAmount": 20000, "quantity": 5, "expirationDate": time.Now().Add(48 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["isActive"])

	status, _ = doJSON(t, env.app, http.MethodPost, "/api/vouchers", admin, map[string]interface{}{
		"code": "TET2025", "quantity": 5, "expirationDate": time.Now().Add(48 * time.Hour),
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestVoucherAdminUpdate(t *testing.T) {
	env := setupApp(t)
	admin := env.token(t, "boss", models.RoleAdmin)
	customer := env.token(t, "buyer", models.RoleCustomer)

	status, body := doJSON(t, env.app, http.MethodGet, "/api/vouchers", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var saleID string
	for _, raw := range body["items"].([]interface{}) {
		v := raw.(map[string]interface{})
		if v["code"] == "SALE50" {
			saleID = v["id"].(string)
		}
	}
	require.NotEmpty(t, saleID)

	deactivate := map[string]interface{}{
		"discountAmount": 50000, "quantity": 1, "isActive": false, "expirationDate": time.Now().Add(time.Hour),
	}
	status, _ = doJSON(t, env.app, http.MethodPut, "/api/vouchers/"+saleID, customer, deactivate)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, env.app, http.MethodPut, "/api/vouchers/"+saleID, admin, deactivate)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["isActive"])
	assert.Equal(t, "SALE50", body["code"])

	status, body = doJSON(t, env.app, http.MethodPost, "/voucher/apply", customer, map[string]interface{}{"code": "SALE50", "subtotal": 100000})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "not active")

	status, _ = doJSON(t, env.app, http.MethodPut, "/api/vouchers/missing", admin, deactivate)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, env.app, http.MethodPut, "/api/vouchers/"+saleID, admin, map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCheckoutErrors(t *testing.T) {
	env := setupApp(t)
	customer := env.token(t, "buyer", models.RoleCustomer)
	shipper := env.token(t, "rider", models.RoleShipper)

	body := func(qty int, method string, details map[string]string, voucher string) map[string]interface{} {
		return map[string]interface{}{
			"items": []map[string]interface{}{{
				"productId": env.phone.ID, "color": "Red", "quantity": qty,
				"subVariant": map[string]string{"specification": "Storage", "value": "128GB"},
			}},
			"paymentMethod":   method,
			"customerDetails": details,
			"voucherCode":     voucher,
		}
	}
	details := map[string]string{"name": "A", "phone": "1", "email": "a@example.com", "address": "Street"}

	tests := []struct {
		name string
		req  map[string]interface{}
		want int
	}{
		{"missing details", body(1, "cash_on_delivery", map[string]string{"name": "A"}, ""), http.StatusBadRequest},
		{"missing payment method", body(1, "", details, ""), http.StatusBadRequest},
		{"online payment on the cod route", body(1, "vnpay", details, ""), http.StatusBadRequest},
		{"zero quantity", body(0, "cash_on_delivery", details, ""), http.StatusBadRequest},
		{"quantity above the line limit", body(1001, "cash_on_delivery", details, ""), http.StatusBadRequest},
		{"not enough stock", body(6, "cash_on_delivery", details, ""), http.StatusConflict},
		{"expired voucher", body(1, "cash_on_delivery", details, "EXPIRED"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := doJSON(t, env.app, http.MethodPost, "/order/confirm", customer, tt.req)
			assert.Equal(t, tt.want, status, resp)
		})
	}

	status, _ := doJSON(t, env.app, http.MethodPost, "/order/confirm", shipper, body(1, "cash_on_delivery", details, ""))
	assert.Equal(t, http.StatusForbidden, status)

	// Online payment is not configured in this app.
	status, _ = doJSON(t, env.app, http.MethodPost, "/create-payment", customer, body(1, "vnpay", details, ""))
	assert.Equal(t, http.StatusBadRequest, status)

	p, err := env.products.GetByID(context.Background(), env.phone.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Variants[0].SubVariants[0].Quantity)

	status, resp := doJSON(t, env.app, http.MethodPost, "/order/confirm", customer, body(5, "cash_on_delivery", details, "SALE50"))
	require.Equal(t, http.StatusCreated, status, resp)
	assert.Equal(t, float64(450000), resp["order"].(map[string]interface{})["amount"])
}

func TestOrderRoutesErrors(t *testing.T) {
	env := setupApp(t)
	admin := env.token(t, "boss", models.RoleAdmin)
	shipper := env.token(t, "rider", models.RoleShipper)

	status, _ := doJSON(t, env.app, http.MethodPut, "/api/orders/missing/confirm", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, env.app, http.MethodGet, "/api/orders?status=shipped", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, env.app, http.MethodPut, "/orders-list/missing", shipper, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, env.app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
