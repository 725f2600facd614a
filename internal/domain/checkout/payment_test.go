package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCashTender_ExactAndOver(t *testing.T) {
	total := decimal.RequireFromString("150")

	change, err := ValidateCashTender(decimal.RequireFromString("200"), total)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(change))

	change, err = ValidateCashTender(total, total)
	require.NoError(t, err)
	assert.True(t, change.IsZero())
}

func TestValidateCashTender_Insufficient(t *testing.T) {
	total := decimal.RequireFromString("150")

	_, err := ValidateCashTender(decimal.RequireFromString("100"), total)

	var itErr *InsufficientTenderError
	require.ErrorAs(t, err, &itErr)
	assert.True(t, total.Equal(itErr.Total))
}

func TestValidateCashTender_NegativeRejected(t *testing.T) {
	_, err := ValidateCashTender(decimal.RequireFromString("-5"), decimal.Zero)

	var itErr *InsufficientTenderError
	require.ErrorAs(t, err, &itErr)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("cash")
	require.NoError(t, err)
	assert.Equal(t, MethodCash, m)

	m, err = ParseMethod("card")
	require.NoError(t, err)
	assert.Equal(t, MethodCard, m)

	_, err = ParseMethod("cheque")
	require.ErrorIs(t, err, ErrUnknownMethod)
}
