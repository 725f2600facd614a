// Package receipt renders a committed sale as a plain-text slip for a
// 40-column thermal printer.
package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
	"github.com/thitiwat/salika-pos/internal/domain/settings"
)

const width = 40

// Render formats the receipt projection produced by a successful commit.
// Company settings supply the header and footer text; a nil settings value
// renders a bare slip.
func Render(r *checkout.Receipt, s *settings.CompanySettings) string {
	var b strings.Builder

	if s != nil {
		writeCentered(&b, s.CompanyName)
		writeCentered(&b, s.AddressLine1)
		writeCentered(&b, s.AddressLine2)
		writeCentered(&b, s.AddressLine3)
		if s.TaxID != "" {
			writeCentered(&b, "Tax ID "+s.TaxID)
		}
		if s.ReceiptHeaderText != "" {
			writeCentered(&b, s.ReceiptHeaderText)
		}
		b.WriteString(divider())
	}

	fmt.Fprintf(&b, "Receipt %s\n", r.Number)
	fmt.Fprintf(&b, "Date    %s\n", r.CreatedAt.Format("02/01/2006 15:04"))
	if r.Salesperson != "" {
		fmt.Fprintf(&b, "Cashier %s\n", r.Salesperson)
	}
	b.WriteString(divider())

	for _, l := range r.Lines {
		writeLine(&b, fmt.Sprintf("%s x%d", l.Name, l.Quantity), l.Total().StringFixed(2))
	}
	b.WriteString(divider())

	t := r.Totals
	vatPct := t.VATRate.Mul(hundred).StringFixed(0)
	writeLine(&b, "Subtotal", t.Subtotal.StringFixed(2))
	writeLine(&b, "Discount", t.DiscountAmount.StringFixed(2))
	writeLine(&b, "After discount", t.AmountAfterDiscount.StringFixed(2))
	writeLine(&b, "VAT "+vatPct+"%", t.VATAmount.StringFixed(2))
	writeLine(&b, "Price excl. VAT", t.PriceExcludingVAT.StringFixed(2))
	writeLine(&b, "TOTAL", t.Total.StringFixed(2))

	if r.Method == checkout.MethodCash {
		writeLine(&b, "Cash", r.CashTendered.StringFixed(2))
		writeLine(&b, "Change", r.ChangeDue.StringFixed(2))
	} else {
		writeLine(&b, "Paid by", string(r.Method))
	}

	if s != nil && s.ReceiptFooterText != "" {
		b.WriteString(divider())
		writeCentered(&b, s.ReceiptFooterText)
	}

	return b.String()
}

var hundred = decimal.NewFromInt(100)

func divider() string {
	return strings.Repeat("-", width) + "\n"
}

func writeCentered(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	runes := []rune(s)
	if len(runes) >= width {
		b.WriteString(s)
		b.WriteByte('\n')
		return
	}
	pad := (width - len(runes)) / 2
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(s)
	b.WriteByte('\n')
}

func writeLine(b *strings.Builder, label, amount string) {
	gap := width - len([]rune(label)) - len(amount)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(label)
	b.WriteString(strings.Repeat(" ", gap))
	b.WriteString(amount)
	b.WriteByte('\n')
}
