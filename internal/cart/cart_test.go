package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-coupons/internal/cart"
)

func TestTotalValue(t *testing.T) {
	c := cart.Cart{Items: []cart.Item{
		{ProductID: 1, Quantity: 2, Price: decimal.NewFromFloat(50)},
		{ProductID: 2, Quantity: 1, Price: decimal.NewFromFloat(25.5)},
	}}
	require.True(t, c.TotalValue().Equal(decimal.NewFromFloat(125.5)),
		"got %s", c.TotalValue())
}

func TestQuantitiesSumAcrossLines(t *testing.T) {
	c := cart.Cart{Items: []cart.Item{
		{ProductID: 7, Quantity: 2, Price: decimal.NewFromInt(10)},
		{ProductID: 8, Quantity: 1, Price: decimal.NewFromInt(5)},
		{ProductID: 7, Quantity: 3, Price: decimal.NewFromInt(12)},
	}}
	q := c.Quantities()
	require.Equal(t, int64(5), q[7])
	require.Equal(t, int64(1), q[8])
}

func TestPricesFirstOccurrenceWins(t *testing.T) {
	c := cart.Cart{Items: []cart.Item{
		{ProductID: 7, Quantity: 1, Price: decimal.NewFromInt(10)},
		{ProductID: 7, Quantity: 1, Price: decimal.NewFromInt(99)},
	}}
	p := c.Prices()
	require.True(t, p[7].Equal(decimal.NewFromInt(10)), "got %s", p[7])
}

func TestEmptyCart(t *testing.T) {
	var c cart.Cart
	require.True(t, c.TotalValue().IsZero())
	require.Empty(t, c.Quantities())
	require.Empty(t, c.Prices())
}
