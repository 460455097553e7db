package report

import (
	"testing"
	"time"

	"spendlens/internal/core"
)

func expenseOn(id int64, date string, typ core.ExpenseType, cat string, cents int64) core.Expense {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Expense{
		ID:          id,
		Date:        d,
		Description: "e",
		Category:    cat,
		Amount:      core.CentsOf(cents),
		Type:        typ,
	}
}

var june15 = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func TestFilterExpensesTimeWindows(t *testing.T) {
	expenses := []core.Expense{
		expenseOn(1, "2024-06-15", core.TypePersonal, "Food & Dining", 100),
		expenseOn(2, "2024-06-09", core.TypePersonal, "Travel", 200),
		expenseOn(3, "2024-06-08", core.TypePersonal, "Travel", 300),
		expenseOn(4, "2024-05-17", core.TypePersonal, "Shopping", 400),
		expenseOn(5, "2024-01-02", core.TypePersonal, "Other", 500),
		expenseOn(6, "2023-12-31", core.TypePersonal, "Other", 600),
	}

	cases := []struct {
		filter  TimeFilter
		wantIDs []int64
	}{
		{TimeThisMonth, []int64{1, 2, 3}},
		{TimeLast7Days, []int64{1, 2}},        // 7-day inclusive window: 2024-06-09 in, 06-08 out
		{TimeLast30Days, []int64{1, 2, 3, 4}}, // 30-day inclusive window ending today
		{TimeThisYear, []int64{1, 2, 3, 4, 5}},
		{TimeAll, []int64{1, 2, 3, 4, 5, 6}},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			got := FilterExpenses(expenses, TypeAll, tc.filter, june15)
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("expected %d expenses, got %d: %+v", len(tc.wantIDs), len(got), got)
			}
			seen := make(map[int64]bool)
			for _, e := range got {
				seen[e.ID] = true
			}
			for _, id := range tc.wantIDs {
				if !seen[id] {
					t.Fatalf("expected expense %d in result %+v", id, got)
				}
			}
		})
	}
}

func TestFilterExpensesThisMonthExcludesOtherMonths(t *testing.T) {
	expenses := []core.Expense{
		expenseOn(1, "2024-06-01", core.TypePersonal, "Food & Dining", 100),
		expenseOn(2, "2024-06-30", core.TypePersonal, "Food & Dining", 100),
		expenseOn(3, "2023-06-15", core.TypePersonal, "Food & Dining", 100), // same month, wrong year
		expenseOn(4, "2024-07-01", core.TypePersonal, "Food & Dining", 100),
	}
	got := FilterExpenses(expenses, TypeAll, TimeThisMonth, june15)
	for _, e := range got {
		if !e.Date.SameMonth(june15) {
			t.Fatalf("expense %d outside the current month leaked through: %s", e.ID, e.Date)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(got))
	}
}

func TestFilterExpensesByType(t *testing.T) {
	expenses := []core.Expense{
		expenseOn(1, "2024-06-15", core.TypePersonal, "Food & Dining", 100),
		expenseOn(2, "2024-06-15", core.TypeOrganization, "Travel", 200),
		expenseOn(3, "2024-06-14", core.TypePersonal, "Travel", 300),
	}

	personal := FilterExpenses(expenses, TypePersonal, TimeAll, june15)
	if len(personal) != 2 {
		t.Fatalf("expected 2 personal expenses, got %d", len(personal))
	}
	org := FilterExpenses(expenses, TypeOrganization, TimeAll, june15)
	if len(org) != 1 || org[0].ID != 2 {
		t.Fatalf("expected only expense 2, got %+v", org)
	}
	all := FilterExpenses(expenses, TypeAll, TimeAll, june15)
	if len(all) != 3 {
		t.Fatalf("expected all 3 expenses, got %d", len(all))
	}
}

func TestFilterExpensesOrdering(t *testing.T) {
	expenses := []core.Expense{
		expenseOn(1, "2024-06-10", core.TypePersonal, "Food & Dining", 100),
		expenseOn(2, "2024-06-15", core.TypePersonal, "Travel", 200),
		expenseOn(3, "2024-06-15", core.TypePersonal, "Travel", 300),
	}
	got := FilterExpenses(expenses, TypeAll, TimeAll, june15)
	wantOrder := []int64{3, 2, 1} // newest first, same-day ties by descending id
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, got[i].ID)
		}
	}
}

func TestRecent(t *testing.T) {
	expenses := []core.Expense{
		expenseOn(1, "2024-06-15", core.TypePersonal, "Food & Dining", 100),
		expenseOn(2, "2024-06-14", core.TypePersonal, "Travel", 200),
	}
	if got := Recent(expenses, 5); len(got) != 2 {
		t.Fatalf("short list should pass through, got %d", len(got))
	}
	if got := Recent(expenses, 1); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected first expense only, got %+v", got)
	}
}

func TestSortPaymentsByDue(t *testing.T) {
	due := func(s string) core.Date {
		d, _ := core.ParseDate(s)
		return d
	}
	payments := []core.ScheduledPayment{
		{ID: 1, DueDate: due("2024-07-01")},
		{ID: 2, DueDate: due("2024-06-20")},
		{ID: 3, DueDate: due("2024-08-05")},
	}
	got := SortPaymentsByDue(payments)
	if got[0].ID != 2 || got[1].ID != 1 || got[2].ID != 3 {
		t.Fatalf("unexpected order %+v", got)
	}
	if payments[0].ID != 1 {
		t.Fatal("input slice must not be mutated")
	}
}
