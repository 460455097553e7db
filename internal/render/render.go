// Package render writes the derived views as plain text. It holds no
// state and makes no decisions; everything it prints was computed by the
// report package.
package render

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"spendlens/internal/core"
	"spendlens/internal/report"
)

// Unset marks a figure that has no recorded value, which is different
// from a recorded zero.
const Unset = "—"

type Renderer struct {
	w io.Writer
}

func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Dashboard prints the month headline, any budget alerts, and the most
// recent expenses.
func (r *Renderer) Dashboard(userName string, summary report.MonthSummary, alerts []report.BudgetAlert, recent []core.Expense) {
	fmt.Fprintf(r.w, "Hello, %s\n\n", userName)

	income := Unset
	balance := Unset
	if summary.IncomeSet {
		income = summary.Income.String()
		balance = summary.Balance.String()
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Spent this month\t%s\n", summary.TotalSpent)
	fmt.Fprintf(tw, "Daily average\t%s\n", summary.DailyAverage)
	fmt.Fprintf(tw, "Income\t%s\n", income)
	fmt.Fprintf(tw, "Balance\t%s\n", balance)
	tw.Flush()

	for _, a := range alerts {
		switch a.Scope {
		case report.ScopeTotal:
			fmt.Fprintf(r.w, "\n⚠ Over total budget by %s\n", a.Overage)
		case report.ScopeCategory:
			fmt.Fprintf(r.w, "\n⚠ Over %s budget by %s\n", a.Category, a.Overage)
		}
	}

	if len(recent) > 0 {
		fmt.Fprintln(r.w, "\nRecent expenses")
		r.ExpenseTable(recent)
	}
}

// ExpenseTable prints expenses one per row, in the order given.
func (r *Renderer) ExpenseTable(expenses []core.Expense) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tCATEGORY\tAMOUNT\tTYPE\tRECEIPT")
	for _, e := range expenses {
		receipt := ""
		if e.HasReceipt {
			receipt = "📎"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Date, e.Description, e.Category, e.Amount, e.Type, receipt)
	}
	tw.Flush()
}

// CategoryBreakdown prints per-category totals, largest first.
func (r *Renderer) CategoryBreakdown(totals map[string]core.Money) {
	type row struct {
		name  string
		total core.Money
	}
	rows := make([]row, 0, len(totals))
	for name, total := range totals {
		rows = append(rows, row{name, total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].total.Cents != rows[j].total.Cents {
			return rows[i].total.Cents > rows[j].total.Cents
		}
		return rows[i].name < rows[j].name
	})

	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.name, row.total)
	}
	tw.Flush()
}

// PaymentList prints scheduled payments in the order given (soonest
// first when fed from report.SortPaymentsByDue).
func (r *Renderer) PaymentList(payments []core.ScheduledPayment) {
	if len(payments) == 0 {
		fmt.Fprintln(r.w, "No upcoming payments.")
		return
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DUE\tDESCRIPTION\tAMOUNT\tREPEATS")
	for _, p := range payments {
		repeats := "no"
		if p.Repeats {
			repeats = fmt.Sprintf("every %d days", p.RepeatDays)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.DueDate, p.Description, p.Amount, repeats)
	}
	tw.Flush()
}

// Gallery lists receipt photos without their image payloads.
func (r *Renderer) Gallery(photos []core.ReceiptPhoto) {
	if len(photos) == 0 {
		fmt.Fprintln(r.w, "No receipts yet.")
		return
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tEXPENSE")
	for _, p := range photos {
		fmt.Fprintf(tw, "%s\t%s\t#%d\n", p.Date, p.Description, p.ExpenseID)
	}
	tw.Flush()
}
