package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thitiwat/salika-pos/internal/domain/product"
)

func snap(id, name string, price string, stock int) product.Snapshot {
	return product.Snapshot{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func TestCartAddLine_NewLine(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Jasmine Rice 5kg", "189.00", 10), 1))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, 10, lines[0].StockCeiling)
}

func TestCartAddLine_IncrementsExisting(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Jasmine Rice 5kg", "189.00", 10), 1))
	require.NoError(t, c.AddLine(snap("p1", "Jasmine Rice 5kg", "189.00", 10), 2))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCartAddLine_OutOfStock(t *testing.T) {
	var c Cart

	err := c.AddLine(snap("p1", "Drinking Water", "7.00", 0), 1)

	var oosErr *OutOfStockError
	require.ErrorAs(t, err, &oosErr)
	assert.Equal(t, "p1", oosErr.ProductID)
	assert.True(t, c.IsEmpty())
}

func TestCartAddLine_CeilingRejected(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Instant Noodles", "6.50", 2), 2))
	err := c.AddLine(snap("p1", "Instant Noodles", "6.50", 2), 1)

	var ceilErr *StockCeilingError
	require.ErrorAs(t, err, &ceilErr)
	assert.Equal(t, 2, ceilErr.Ceiling)
	// Cart unchanged on rejection.
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestCartAddLine_CeilingCapturedAtAddTime(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Instant Noodles", "6.50", 3), 1))
	// Later snapshot reports more stock, but the ceiling was fixed at add
	// time and still wins.
	err := c.AddLine(snap("p1", "Instant Noodles", "6.50", 99), 3)

	var ceilErr *StockCeilingError
	require.ErrorAs(t, err, &ceilErr)
	assert.Equal(t, 3, ceilErr.Ceiling)
}

func TestCartAdjustQuantity_ZeroRemovesLine(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Green Tea", "25.00", 5), 2))
	require.NoError(t, c.AdjustQuantity("p1", -2))

	assert.True(t, c.IsEmpty())
}

func TestCartAdjustQuantity_FlooredAtZero(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Green Tea", "25.00", 5), 1))
	require.NoError(t, c.AdjustQuantity("p1", -10))

	assert.True(t, c.IsEmpty())
}

func TestCartAdjustQuantity_AboveCeilingRetainsOld(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Green Tea", "25.00", 3), 2))
	err := c.AdjustQuantity("p1", 5)

	var ceilErr *StockCeilingError
	require.ErrorAs(t, err, &ceilErr)
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestCartAdjustQuantity_UnknownLine(t *testing.T) {
	var c Cart

	err := c.AdjustQuantity("ghost", 1)

	var nfErr *LineNotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestCartRemoveLine_AbsentIsNoError(t *testing.T) {
	var c Cart

	c.RemoveLine("ghost")
	assert.True(t, c.IsEmpty())
}

func TestCartLines_ReturnsCopy(t *testing.T) {
	var c Cart

	require.NoError(t, c.AddLine(snap("p1", "Green Tea", "25.00", 5), 1))
	lines := c.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestCartQuantityNeverExceedsCeiling(t *testing.T) {
	var c Cart

	p := snap("p1", "Soda", "15.00", 4)
	for range 10 {
		_ = c.AddLine(p, 1)
		_ = c.AdjustQuantity("p1", 1)
	}

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.LessOrEqual(t, lines[0].Quantity, lines[0].StockCeiling)
}
