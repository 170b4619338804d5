// ABOUTME: Order receipt rendering as Markdown and HTML
// ABOUTME: HTML goes through goldmark with the table extension; raw HTML in titles is not rendered

package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/storefront/internal/cart"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders order as a Markdown receipt.
func Markdown(order cart.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Order %s\n\n", order.ID)
	fmt.Fprintf(&b, "Placed %s\n\n", order.Date.UTC().Format("2006-01-02 15:04 MST"))

	b.WriteString("| Item | Size | Qty | Unit | Subtotal |\n")
	b.WriteString("|---|---|--:|--:|--:|\n")
	for _, it := range order.Items {
		size := it.Size
		if size == "" {
			size = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
			escapeCell(it.Title), escapeCell(size), it.Quantity, Money(it.UnitPrice), Money(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\n**Total: %s**\n", Money(order.Total))

	if a := order.DeliveryAddress; a != nil {
		b.WriteString("\n## Delivery\n\n")
		fmt.Fprintf(&b, "%s  \n", escapeText(a.Street))
		line := strings.TrimSpace(a.PostalCode + " " + a.City)
		if line != "" {
			fmt.Fprintf(&b, "%s\n", escapeText(line))
		}
	}
	return b.String()
}

// HTML renders order as an HTML fragment.
func HTML(order cart.Order) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(order)), &buf); err != nil {
		return "", fmt.Errorf("rendering receipt: %w", err)
	}
	return buf.String(), nil
}

// Money formats an amount with two decimals.
func Money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`, "#", `\#`,
)

func escapeText(s string) string {
	return textEscaper.Replace(strings.ReplaceAll(s, "\n", " "))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeText(s), "|", `\|`)
}
