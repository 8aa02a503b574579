// Package services provides business logic and orchestration services.
//
// This file holds the strategy used to move a scheduled expense forward
// after a payment. Each schedule type has its own Advancer.
package services

import (
	"fmt"
	"time"

	"poupazap/internal/core"
)

// Advancer computes the state of a scheduled expense after one payment.
type Advancer interface {
	Advance(e core.ScheduledExpense) core.ScheduledExpense
}

// InstallmentAdvancer counts the payment and deactivates the entry after
// the last installment, otherwise moves the due date one month ahead.
type InstallmentAdvancer struct{}

func (InstallmentAdvancer) Advance(e core.ScheduledExpense) core.ScheduledExpense {
	e.InstallmentsPaid++
	if e.InstallmentsPaid >= e.TotalInstallments {
		e.Active = false
		return e
	}
	e.NextDueDate = core.Date{Time: AddMonthsClamped(e.NextDueDate.Time, 1)}
	return e
}

// RecurringAdvancer moves the due date to RecurrenceDay of the next month,
// or that month's last day when it is shorter.
type RecurringAdvancer struct{}

func (RecurringAdvancer) Advance(e core.ScheduledExpense) core.ScheduledExpense {
	next := AddMonthsClamped(e.NextDueDate.Time, 1)
	e.NextDueDate = core.Date{Time: dayOfMonthClamped(next.Year(), next.Month(), e.RecurrenceDay, next.Location())}
	return e
}

var advancers = map[core.ScheduleType]Advancer{
	core.Installment: InstallmentAdvancer{},
	core.Recurring:   RecurringAdvancer{},
}

// GetAdvancer returns the strategy for a schedule type.
func GetAdvancer(t core.ScheduleType) (Advancer, error) {
	a, ok := advancers[t]
	if !ok {
		return nil, fmt.Errorf("unknown schedule type: %s", t)
	}
	return a, nil
}

// RegisterAdvancer installs a strategy for a new schedule type.
func RegisterAdvancer(t core.ScheduleType, a Advancer) {
	advancers[t] = a
}

// AddMonthsClamped adds n calendar months to a date, using the target
// month's last day when the day does not exist there: 31 Jan + 1 month is
// 28 (or 29) Feb. The time of day is dropped.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	return dayOfMonthClamped(first.Year(), first.Month(), d, t.Location())
}

func dayOfMonthClamped(year int, month time.Month, day int, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
