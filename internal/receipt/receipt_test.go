// ABOUTME: Tests for order receipt rendering
// ABOUTME: Checks Markdown layout, HTML table output, and escaping of product text

package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/address"
	"github.com/2389/storefront/internal/cart"
)

func sampleOrder() cart.Order {
	return cart.Order{
		ID: "0192f0c1-aaaa-7bbb-8ccc-123456789abc",
		Items: []cart.LineItem{
			{ProductID: 1, Title: "Classic Tee", Size: "M", UnitPrice: 10, Quantity: 2},
			{ProductID: 2, Title: "Mug", UnitPrice: 4.5, Quantity: 1},
		},
		Total:           24.5,
		Date:            time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		DeliveryAddress: &address.Address{Street: "1 Main St", City: "Springfield", PostalCode: "12345"},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleOrder())

	assert.Contains(t, md, "# Order 0192f0c1-aaaa-7bbb-8ccc-123456789abc")
	assert.Contains(t, md, "Placed 2026-03-14 09:30 UTC")
	assert.Contains(t, md, "| Classic Tee | M | 2 | $10.00 | $20.00 |")
	assert.Contains(t, md, "| Mug | - | 1 | $4.50 | $4.50 |")
	assert.Contains(t, md, "**Total: $24.50**")
	assert.Contains(t, md, "12345 Springfield")
}

func TestMarkdown_NoDeliveryAddress(t *testing.T) {
	o := sampleOrder()
	o.DeliveryAddress = nil
	assert.NotContains(t, Markdown(o), "Delivery")
}

func TestHTML(t *testing.T) {
	html, err := HTML(sampleOrder())
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Order 0192f0c1-aaaa-7bbb-8ccc-123456789abc</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>Classic Tee</td>")
	assert.Contains(t, html, "<strong>Total: $24.50</strong>")
}

func TestHTML_EscapesProductText(t *testing.T) {
	o := sampleOrder()
	o.Items[0].Title = "<script>alert(1)</script> | *bold*"

	html, err := HTML(o)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<em>bold</em>")
	assert.Contains(t, html, "&lt;script&gt;")
}
