package services

import (
	"context"
	"testing"

	"storefront/internal/cart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryValidate(t *testing.T) {
	f := newFixture(t)
	v := NewInventoryValidator(f.products)

	big := red128(2)
	big.ProductID = f.phone.ID
	big.SubVariant.Value = "256GB"
	blue := cart.Item{ProductID: f.phone.ID, Color: "Blue", Quantity: 4}

	lines, err := v.Validate(context.Background(), []LineRequest{big, blue})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, int64(120000), lines[0].Item.Price)
	assert.Equal(t, 2, lines[0].Available)
	assert.NotEmpty(t, lines[0].Stock.SubVariantID)
	assert.Equal(t, "Phone", lines[0].Item.Name)
	assert.Equal(t, "phone.png", lines[0].Item.Img)

	assert.Equal(t, int64(81000), lines[1].Item.Price)
	assert.Empty(t, lines[1].Stock.SubVariantID)
	assert.Equal(t, 4, lines[1].Stock.Quantity)

	blue.Quantity = 5
	_, err = v.Validate(context.Background(), []LineRequest{big, blue})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 4, f.stock(t, "Blue", ""), "validation never writes")
}
