package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Summary struct {
	TotalOrders  int             `json:"totalOrders"`
	TodayOrders  int             `json:"todayOrders"`
	TodayRevenue decimal.Decimal `json:"todayRevenue"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	StatusCounts map[Status]int  `json:"statusCounts"`
}

// Summarize computes the dashboard header. "Today" is the calendar day of now
// in now's location; order timestamps are converted into it before comparing.
func Summarize(orders []Order, now time.Time) Summary {
	s := Summary{
		TotalOrders:  len(orders),
		TodayRevenue: decimal.Zero,
		TotalRevenue: decimal.Zero,
		StatusCounts: make(map[Status]int),
	}
	loc := now.Location()
	for _, o := range orders {
		amount := ParseAmount(o.Total)
		s.TotalRevenue = s.TotalRevenue.Add(amount)
		s.StatusCounts[o.Status]++

		if o.Timestamp.IsZero() || !sameDay(o.Timestamp.In(loc), now) {
			continue
		}
		s.TodayOrders++
		s.TodayRevenue = s.TodayRevenue.Add(amount)
	}
	return s
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
