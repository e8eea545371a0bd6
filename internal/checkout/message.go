package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/littletreat/internal/catalog"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

const defaultItemEmoji = "📦"

func buildMessage(kind order.Kind, lines []catalog.CartLine, total decimal.Decimal, addr order.Address, slot string) string {
	if kind == order.KindChocolate {
		return chocolateMessage(lines, total, addr)
	}
	return foodMessage(lines, total, addr, slot)
}

func foodMessage(lines []catalog.CartLine, total decimal.Decimal, addr order.Address, slot string) string {
	var b strings.Builder
	b.WriteString("🍽️ *Little Treat Order*\n\n")
	b.WriteString("📦 *Order Items:*\n")
	for _, l := range lines {
		emoji := l.Item.Emoji
		if emoji == "" {
			emoji = defaultItemEmoji
		}
		fmt.Fprintf(&b, "%s %s: %d %s\n", emoji, l.Item.Name, l.Quantity, catalog.UnitLabel(l.Item.Unit, l.Quantity))
	}
	fmt.Fprintf(&b, "\n📅 *Delivery Date & Time:* %s\n", slot)
	fmt.Fprintf(&b, "💰 *Total Amount:* %s\n\n", order.FormatRupees(total))
	b.WriteString("📍 *Delivery Address:*\n")
	fmt.Fprintf(&b, "Flat: %s\n", addr.Flat)
	fmt.Fprintf(&b, "Apartment: %s\n\n", addr.Apartment)
	b.WriteString("Please confirm my order. Thank you! 😊")
	return b.String()
}

func chocolateMessage(lines []catalog.CartLine, total decimal.Decimal, addr order.Address) string {
	out := []string{
		"Hello Little Treat,",
		"",
		"I would like to place an order for chocolates:",
		"",
		"📦 *Order Details:*",
	}
	for _, l := range lines {
		out = append(out, fmt.Sprintf("• %s × %d = %s", l.Item.Name, l.Quantity, formatINR(l.Subtotal)))
	}
	out = append(out,
		"",
		fmt.Sprintf("💰 *Total: %s*", formatINR(total)),
		"",
		"📍 *Delivery Address:*",
		"Flat: "+addr.Flat,
		"Apartment: "+addr.Apartment,
		"",
		"Please confirm availability and delivery details.",
	)
	return strings.Join(out, "\n")
}

// formatINR renders whole rupees with Indian digit grouping, e.g. ₹1,25,000.
func formatINR(amount decimal.Decimal) string {
	digits := amount.Round(0).Abs().String()
	sign := ""
	if amount.Round(0).IsNegative() {
		sign = "-"
	}
	if len(digits) <= 3 {
		return sign + "₹" + digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}

// WhatsAppURL builds the wa.me deep link. Non-digits are stripped from phone.
func WhatsAppURL(phone, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return "https://wa.me/" + digits + "?text=" + encodeURIComponent(message)
}

// encodeURIComponent percent-encodes spaces as %20 rather than "+".
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
