package checkout

import "github.com/shopspring/decimal"

// DefaultVATRate is used when company settings are unavailable.
var DefaultVATRate = decimal.RequireFromString("0.07")

// DiscountPolicy computes the discount to subtract from a cart subtotal.
// The current policy is always zero; the hook exists so a promotion engine
// can be plugged in without touching the totals math.
type DiscountPolicy interface {
	Discount(lines []Line, subtotal decimal.Decimal) decimal.Decimal
}

// ZeroDiscount is the default DiscountPolicy: no discount.
type ZeroDiscount struct{}

// Discount always returns zero.
func (ZeroDiscount) Discount([]Line, decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// Totals holds every monetary figure derived from the cart. Prices are
// VAT-inclusive, so the tax figures are back-calculated from the amount
// after discount. Total is the amount the customer is asked to pay: the
// amount after discount rounded to the nearest whole currency unit for
// cash settlement.
type Totals struct {
	Subtotal            decimal.Decimal
	DiscountAmount      decimal.Decimal
	AmountAfterDiscount decimal.Decimal
	VATRate             decimal.Decimal
	PriceExcludingVAT   decimal.Decimal
	VATAmount           decimal.Decimal
	Total               decimal.Decimal
}

// ComputeTotals derives Totals from the given lines, VAT rate, and
// discount policy. It is pure: identical inputs always produce identical
// totals, with no side effects.
func ComputeTotals(lines []Line, vatRate decimal.Decimal, policy DiscountPolicy) Totals {
	if policy == nil {
		policy = ZeroDiscount{}
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}

	discount := policy.Discount(lines, subtotal)
	afterDiscount := subtotal.Sub(discount)

	one := decimal.NewFromInt(1)
	excludingVAT := afterDiscount.Div(one.Add(vatRate))
	vatAmount := afterDiscount.Sub(excludingVAT)

	return Totals{
		Subtotal:            subtotal,
		DiscountAmount:      discount,
		AmountAfterDiscount: afterDiscount,
		VATRate:             vatRate,
		PriceExcludingVAT:   excludingVAT,
		VATAmount:           vatAmount,
		Total:               afterDiscount.Round(0),
	}
}
