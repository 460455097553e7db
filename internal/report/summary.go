package report

import (
	"sort"
	"time"

	"spendlens/internal/core"
)

const (
	ScopeTotal    AlertScope = "total"
	ScopeCategory AlertScope = "category"
)

type (
	// AlertScope says whether a budget alert concerns the month total or a
	// single category.
	AlertScope string

	// MonthSummary is the dashboard headline for one month. IncomeSet
	// distinguishes "no income recorded" from a zero income; Balance is
	// meaningful only when IncomeSet is true.
	MonthSummary struct {
		TotalSpent   core.Money
		DailyAverage core.Money
		Income       core.Money
		IncomeSet    bool
		Balance      core.Money
	}

	// BudgetAlert reports one exceeded limit. Category is empty for the
	// total scope.
	BudgetAlert struct {
		Scope    AlertScope
		Category string
		Overage  core.Money
	}
)

// SummarizeMonth aggregates spending for the month identified by key.
// The daily average divides by the current day of the month and is zero
// when nothing was spent.
func SummarizeMonth(expenses []core.Expense, income core.Money, incomeSet bool, key core.MonthKey, now time.Time) MonthSummary {
	total := monthTotal(expenses, key)

	summary := MonthSummary{
		TotalSpent: total,
		Income:     income,
		IncomeSet:  incomeSet,
	}
	if total.Cents > 0 {
		summary.DailyAverage = total.DivideBy(now.Day())
	}
	if incomeSet {
		summary.Balance = income.Sub(total)
	}
	return summary
}

// BudgetAlerts returns every exceeded limit for the month: the total
// first, then each over-spent category in name order. Every category is
// checked independently. A month without a budget yields nothing.
func BudgetAlerts(expenses []core.Expense, budget core.Budget, hasBudget bool, key core.MonthKey) []BudgetAlert {
	if !hasBudget {
		return nil
	}

	var alerts []BudgetAlert

	total := monthTotal(expenses, key)
	if total.Cents > budget.Total.Cents {
		alerts = append(alerts, BudgetAlert{
			Scope:   ScopeTotal,
			Overage: total.Sub(budget.Total),
		})
	}

	spent := make(map[string]core.Money)
	for _, e := range expenses {
		if e.Date.MonthKey() == key {
			spent[e.Category] = spent[e.Category].Add(e.Amount)
		}
	}

	names := make([]string, 0, len(budget.Categories))
	for name := range budget.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		limit := budget.Categories[name]
		if spent[name].Cents > limit.Cents {
			alerts = append(alerts, BudgetAlert{
				Scope:    ScopeCategory,
				Category: name,
				Overage:  spent[name].Sub(limit),
			})
		}
	}
	return alerts
}

func monthTotal(expenses []core.Expense, key core.MonthKey) core.Money {
	var total core.Money
	for _, e := range expenses {
		if e.Date.MonthKey() == key {
			total = total.Add(e.Amount)
		}
	}
	return total
}
