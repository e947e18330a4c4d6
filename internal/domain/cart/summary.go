package cart

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Pricing configures the totals shown under the cart. Shipping is always free.
type Pricing struct {
	// TaxRate is a percentage applied to the subtotal; zero disables the tax line.
	TaxRate  decimal.Decimal
	TaxLabel string
}

// Summary is the derived totals block of a cart.
type Summary struct {
	ItemCount int
	Subtotal  decimal.Decimal
	TaxLabel  string
	TaxRate   decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// Subtotal returns the sum of UnitPrice * Quantity over items.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Total())
	}
	return sum
}

// Summarize computes the totals of items under p. Tax is rounded to cents.
func Summarize(items []LineItem, p Pricing) Summary {
	subtotal := Subtotal(items)

	tax := decimal.Zero
	if p.TaxRate.IsPositive() {
		tax = subtotal.Mul(p.TaxRate).Div(hundred).Round(2)
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}

	return Summary{
		ItemCount: count,
		Subtotal:  subtotal,
		TaxLabel:  p.TaxLabel,
		TaxRate:   p.TaxRate,
		Tax:       tax,
		Shipping:  decimal.Zero,
		Total:     subtotal.Add(tax),
	}
}
