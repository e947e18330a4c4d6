package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/relay"
)

// Order is the snapshot sent to the relay on submit. It is built once per
// attempt and reused verbatim by Retry.
type Order struct {
	Reference   string
	Form        Form
	Items       []cart.LineItem
	Summary     cart.Summary
	SubmittedAt time.Time
}

// Submission renders the order for the relay.
func (o Order) Submission(subject string) relay.Submission {
	lines := make([]relay.Line, len(o.Items))
	for i, item := range o.Items {
		lines[i] = relay.Line{
			Name:     item.Name,
			Size:     item.Variant.Size,
			Color:    item.Variant.Color,
			Volume:   item.Variant.Volume,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
			Total:    item.Total(),
		}
	}

	f := o.Form
	return relay.Submission{
		Subject: subject,
		Name:    f.FullName(),
		Email:   f.Email,
		Phone:   f.Phone,
		Message: o.Text(),
		Fields: []relay.Field{
			{Name: "order_reference", Value: o.Reference},
			{Name: "first_name", Value: f.FirstName},
			{Name: "last_name", Value: f.LastName},
			{Name: "address", Value: f.Address},
			{Name: "city", Value: f.City},
			{Name: "state", Value: f.State},
			{Name: "zip_code", Value: f.ZipCode},
			{Name: "country", Value: f.Country},
			{Name: "item_count", Value: fmt.Sprint(o.Summary.ItemCount)},
			{Name: "subtotal", Value: o.Summary.Subtotal.StringFixed(2)},
			{Name: "tax", Value: o.Summary.Tax.StringFixed(2)},
			{Name: "shipping", Value: "Free"},
			{Name: "total", Value: o.Summary.Total.StringFixed(2)},
			{Name: "submission_date", Value: o.SubmittedAt.Format(time.RFC1123)},
			{Name: "page_source", Value: "Checkout Page"},
		},
		Lines: lines,
	}
}

// Text is the human-readable order block placed in the e-mail body.
func (o Order) Text() string {
	var b strings.Builder
	f := o.Form

	fmt.Fprintf(&b, "Order reference: %s\n\n", o.Reference)
	fmt.Fprintf(&b, "Customer: %s\n", f.FullName())
	fmt.Fprintf(&b, "Email: %s\n", f.Email)
	fmt.Fprintf(&b, "Phone: %s\n\n", f.Phone)
	b.WriteString("Shipping address:\n")
	fmt.Fprintf(&b, "%s\n%s, %s %s\n%s\n\n", f.Address, f.City, f.State, f.ZipCode, f.Country)

	b.WriteString("Items:\n")
	for i, item := range o.Items {
		fmt.Fprintf(&b, "%d. %s", i+1, item.Name)
		if v := item.Variant.String(); v != "" {
			fmt.Fprintf(&b, " (%s)", v)
		}
		fmt.Fprintf(&b, " x%d @ %s = %s\n",
			item.Quantity, item.UnitPrice.StringFixed(2), item.Total().StringFixed(2))
	}

	s := o.Summary
	fmt.Fprintf(&b, "\nSubtotal: %s\n", s.Subtotal.StringFixed(2))
	if s.TaxRate.IsPositive() {
		label := s.TaxLabel
		if label == "" {
			label = "Tax"
		}
		fmt.Fprintf(&b, "%s (%s%%): %s\n", label, s.TaxRate.String(), s.Tax.StringFixed(2))
	}
	b.WriteString("Shipping: Free\n")
	fmt.Fprintf(&b, "Total: %s\n", s.Total.StringFixed(2))

	return b.String()
}
