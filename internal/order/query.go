package order

import (
	"slices"
	"strings"
)

type SortKey string

const (
	SortNewest       SortKey = "newest"
	SortDeliveryTime SortKey = "deliveryTime"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// Query is the admin's current view of the order list.
type Query struct {
	Status string
	Search string
	Sort   SortKey
}

// Apply filters and sorts a copy of orders; the input is never modified.
func Apply(orders []Order, q Query) []Order {
	filtered := Search(FilterByStatus(orders, q.Status), q.Search)
	return Sort(filtered, q.Sort)
}

func FilterByStatus(orders []Order, status string) []Order {
	if status == "" || status == StatusAll {
		return slices.Clone(orders)
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if string(o.Status) == status {
			out = append(out, o)
		}
	}
	return out
}

// Search keeps orders where any searchable field contains query,
// case-insensitively. A blank query matches everything.
func Search(orders []Order, query string) []Order {
	if strings.TrimSpace(query) == "" {
		return slices.Clone(orders)
	}
	needle := strings.ToLower(query)
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if Matches(o, needle) {
			out = append(out, o)
		}
	}
	return out
}

// Matches expects needle to be lower-cased already.
func Matches(o Order, needle string) bool {
	fields := [...]string{
		o.OrderID,
		o.Address.Flat,
		o.Address.Apartment,
		o.Items,
		o.DeliveryDate,
		o.DeliveryTime,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy. Unknown keys fall back to newest first.
func Sort(orders []Order, by SortKey) []Order {
	sorted := slices.Clone(orders)
	if by == SortDeliveryTime {
		slices.SortStableFunc(sorted, func(a, b Order) int {
			return ParseDeliveryTime(a.DeliveryTime) - ParseDeliveryTime(b.DeliveryTime)
		})
		return sorted
	}
	slices.SortStableFunc(sorted, func(a, b Order) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return sorted
}

func ParseSortKey(s string) SortKey {
	if SortKey(s) == SortDeliveryTime {
		return SortDeliveryTime
	}
	return SortNewest
}
