package order

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const notAvailable = "N/A"

// Line is one selected cart entry as it is written into the order's items text.
type Line struct {
	Name     string
	Quantity int
	Unit     string
	Subtotal decimal.Decimal
}

// FormatItems renders lines as "name x qty unit (₹subtotal)" joined by ", ".
func FormatItems(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s x %d %s (%s)", l.Name, l.Quantity, sheetUnit(l.Unit), FormatRupees(l.Subtotal)))
	}
	return strings.Join(parts, ", ")
}

func sheetUnit(unit string) string {
	switch strings.ToLower(unit) {
	case "kg":
		return "Kg"
	case "piece", "":
		return "pcs"
	default:
		return unit
	}
}

func FormatRupees(amount decimal.Decimal) string {
	return "₹" + amount.String()
}

var amountRe = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)

// ParseAmount reads the leading number out of a total such as "₹1,250".
// Thousands separators are dropped; anything unparseable counts as zero.
func ParseAmount(total string) decimal.Decimal {
	match := amountRe.FindString(total)
	if match == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

var deliveryTimeRe = regexp.MustCompile(`(?i)(\d+):(\d+)\s*(AM|PM)`)

// ParseDeliveryTime converts a 12-hour "H:MM AM/PM" time to minutes since
// midnight. Values that do not parse sort first as 0.
func ParseDeliveryTime(s string) int {
	m := deliveryTimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0
	}
	pm := strings.EqualFold(m[3], "PM")
	switch {
	case pm && hours != 12:
		hours += 12
	case !pm && hours == 12:
		hours = 0
	}
	return hours*60 + minutes
}

var (
	clockRe     = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	dateLayouts = []string{time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006"}
)

// FormatDeliveryDate normalises a fetched delivery date to "2 Jan 2006".
// Text that already reads like a date label is returned as is.
func FormatDeliveryDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return notAvailable
	}
	if strings.IndexFunc(raw, unicode.IsLetter) >= 0 && !looksLikeTimestamp(raw) {
		return raw
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2 Jan 2006")
		}
	}
	return raw
}

// FormatDeliveryTime normalises a fetched delivery time. Slot labels and
// bare clock values are kept, ISO timestamps become "3:04 PM".
func FormatDeliveryTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return notAvailable
	}
	if deliveryTimeRe.MatchString(raw) || clockRe.MatchString(raw) {
		return raw
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("3:04 PM")
	}
	return raw
}

func looksLikeTimestamp(raw string) bool {
	_, err := time.Parse(time.RFC3339, raw)
	return err == nil
}
