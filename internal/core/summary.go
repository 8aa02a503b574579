package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a user's year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expenses   Money
	ByCategory []CategoryAmount
}

// Balance is income minus expenses; it may be negative.
func (o MonthOverview) Balance() Money {
	return o.Income.Sub(o.Expenses)
}

// NonZeroByAmount returns the categories with spending, largest first.
func (o MonthOverview) NonZeroByAmount() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(o.ByCategory))
	for _, c := range o.ByCategory {
		if c.Amount.Cents > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}
