package seed_test

import (
	"context"
	"testing"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/seed"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	products := repositories.NewGORMProductRepository(db)
	vouchers := repositories.NewGORMVoucherRepository(db)
	users := repositories.NewGORMUserRepository(db)
	auth := services.NewAuthService(users, "seed-secret")

	require.NoError(t, seed.Demo(ctx, products, vouchers, auth))
	require.NoError(t, seed.Demo(ctx, products, vouchers, auth))

	all, err := products.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	v, err := vouchers.GetByCode(ctx, "SALE50")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), v.DiscountAmount)
	assert.True(t, v.IsActive)

	admin, err := users.GetByUsername(ctx, seed.AdminUsername)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	shipper, err := users.GetByUsername(ctx, seed.ShipperUsername)
	require.NoError(t, err)
	assert.Equal(t, models.RoleShipper, shipper.Role)

	token, err := auth.LoginUser(ctx, seed.ShipperUsername, seed.DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
