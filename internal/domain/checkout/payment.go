package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method is the payment method chosen at the register.
type Method string

const (
	MethodCash Method = "cash"
	MethodCard Method = "card"
)

// ErrUnknownMethod is returned for payment methods other than cash or card.
var ErrUnknownMethod = errors.New("unknown payment method")

// ParseMethod validates a payment method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCash, MethodCard:
		return Method(s), nil
	default:
		return "", ErrUnknownMethod
	}
}

// InsufficientTenderError indicates the cash offered does not cover the
// rounded total due.
type InsufficientTenderError struct {
	Tendered decimal.Decimal
	Total    decimal.Decimal
}

func (e *InsufficientTenderError) Error() string {
	return fmt.Sprintf("tendered %s is less than total %s", e.Tendered, e.Total)
}

// ValidateCashTender checks that tendered is non-negative and covers the
// total, returning the change due. The change is always >= 0 when the
// tender is valid.
func ValidateCashTender(tendered, total decimal.Decimal) (decimal.Decimal, error) {
	if tendered.IsNegative() || tendered.LessThan(total) {
		return decimal.Zero, &InsufficientTenderError{Tendered: tendered, Total: total}
	}
	return tendered.Sub(total), nil
}
