package checkout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/soch-storefront/internal/domain/cart"
)

func TestOrder_Text(t *testing.T) {
	items := filledCart().Items()
	o := Order{
		Reference: "ref-1",
		Form:      validForm(),
		Items:     items,
		Summary: cart.Summarize(items, cart.Pricing{
			TaxRate:  decimal.NewFromInt(8),
			TaxLabel: "Sales tax",
		}),
		SubmittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	want := `Order reference: ref-1

Customer: Ayesha Khan
Email: ayesha@example.com
Phone: 555-0100

Shipping address:
12 Main St
Springfield, IL 62701
United States

Items:
1. Afsanay (Size: M, Color: Ivory) x2 @ 10.00 = 20.00
2. Roselina (Volume: 50ml) x3 @ 5.00 = 15.00

Subtotal: 35.00
Sales tax (8%): 2.80
Shipping: Free
Total: 37.80
`
	assert.Equal(t, want, o.Text())

	s := o.Submission("New order")
	assert.Equal(t, "New order", s.Subject)
	assert.Equal(t, o.Text(), s.Message)
	require.NotEmpty(t, s.Fields)
	assert.Equal(t, "order_reference", s.Fields[0].Name)
	assert.Equal(t, "ref-1", s.Fields[0].Value)

	values := map[string]string{}
	for _, f := range s.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "37.80", values["total"])
	assert.Equal(t, "5", values["item_count"])
	assert.Equal(t, "Free", values["shipping"])
}

func TestForm_Validate(t *testing.T) {
	assert.NoError(t, validForm().Validate())

	err := Form{}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, Fields, verr.Missing)

	bad := validForm()
	bad.Email = "not-an-email"
	require.ErrorAs(t, bad.Validate(), &verr)
	assert.Empty(t, verr.Missing)
	assert.Equal(t, []Field{FieldEmail}, verr.Invalid)
	assert.Equal(t, "validation failed: invalid email", verr.Error())
}
