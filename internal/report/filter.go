// Package report derives filtered views and summary figures from the
// application state. Everything here is a pure function over plain
// slices and maps; the current time is always an explicit argument.
package report

import (
	"sort"
	"time"

	"spendlens/internal/core"
)

const (
	TypeAll          TypeFilter = "all"
	TypePersonal     TypeFilter = "personal"
	TypeOrganization TypeFilter = "organization"
)

const (
	TimeAll        TimeFilter = "all"
	TimeThisMonth  TimeFilter = "this-month"
	TimeLast7Days  TimeFilter = "last-7-days"
	TimeLast30Days TimeFilter = "last-30-days"
	TimeThisYear   TimeFilter = "this-year"
)

type (
	// TypeFilter narrows expenses to one spending type.
	TypeFilter string

	// TimeFilter narrows expenses to a window relative to "now". The day
	// windows are inclusive: last-7-days means today and the six days
	// before it.
	TimeFilter string
)

// FilterExpenses returns the expenses matching both filters, newest
// first (ties broken by descending identifier, the insertion order of
// the remote store).
func FilterExpenses(expenses []core.Expense, typeFilter TypeFilter, timeFilter TimeFilter, now time.Time) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !matchesType(e, typeFilter) {
			continue
		}
		if !matchesWindow(e, timeFilter, now) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func matchesType(e core.Expense, f TypeFilter) bool {
	switch f {
	case TypePersonal:
		return e.Type == core.TypePersonal
	case TypeOrganization:
		return e.Type == core.TypeOrganization
	default:
		return true
	}
}

func matchesWindow(e core.Expense, f TimeFilter, now time.Time) bool {
	switch f {
	case TimeThisMonth:
		return e.Date.SameMonth(now)
	case TimeLast7Days:
		return !e.Date.Before(core.DateOf(now).AddDays(-6).Time)
	case TimeLast30Days:
		return !e.Date.Before(core.DateOf(now).AddDays(-29).Time)
	case TimeThisYear:
		return e.Date.Year() == now.Year()
	default:
		return true
	}
}

// Recent returns at most n of the already-filtered, already-sorted
// expenses, for the dashboard's recent list.
func Recent(filtered []core.Expense, n int) []core.Expense {
	if len(filtered) <= n {
		return filtered
	}
	return filtered[:n]
}

// CategoryTotals sums amounts per category, feeding the category chart.
func CategoryTotals(expenses []core.Expense) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}

// SortPaymentsByDue orders scheduled payments soonest first without
// mutating the input.
func SortPaymentsByDue(payments []core.ScheduledPayment) []core.ScheduledPayment {
	out := make([]core.ScheduledPayment, len(payments))
	copy(out, payments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate.Time)
	})
	return out
}

// SortPhotosNewest orders receipt photos by descending identifier, the
// gallery's display order.
func SortPhotosNewest(photos []core.ReceiptPhoto) []core.ReceiptPhoto {
	out := make([]core.ReceiptPhoto, len(photos))
	copy(out, photos)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out
}
