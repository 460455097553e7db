// Command spendlens is the terminal client: it loads the full snapshot
// from the remote store at startup, then runs one command against the
// in-memory state.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlens/internal/api"
	"spendlens/internal/config"
	"spendlens/internal/controller"
	"spendlens/internal/core"
	applog "spendlens/internal/log"
	"spendlens/internal/render"
	"spendlens/internal/report"
	"spendlens/internal/state"
)

const usage = `Usage: spendlens <command> [flags]

Commands:
  dashboard                 month summary, budget alerts, recent expenses (default)
  expenses                  list expenses (-type, -time filters)
  payments                  list upcoming payments
  gallery                   list receipt photos
  add                       add an expense
  edit -id N                edit an expense
  delete <id>               delete an expense (and its receipt)
  add-payment               schedule a payment
  pay <id>                  mark a scheduled payment as done
  delete-payment <id>       delete a scheduled payment
  set-income <amount>       set this month's income
  set-budget                set this month's budget (-total, -cat Name=Amount)
  set-name <name>           set the display name
`

type app struct {
	state *state.State
	ctrl  *controller.Controller
	out   *render.Renderer
	now   time.Time
}

// stderrNotifier prints blocking error messages the way the controller
// hands them out.
type stderrNotifier struct{}

func (stderrNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.ParseLevel(cfg.LogLevel), "client")
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	st := state.New(client)
	if err := st.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load data from %s: %v\n", cfg.APIBaseURL, err)
		os.Exit(1)
	}

	a := &app{
		state: st,
		ctrl:  controller.New(st, stderrNotifier{}),
		out:   render.New(os.Stdout),
		now:   time.Now(),
	}

	args := os.Args[1:]
	cmd := "dashboard"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	if err := a.run(ctx, cmd, args); err != nil {
		var vErr *controller.ValidationError
		if errors.As(err, &vErr) {
			fmt.Fprintln(os.Stderr, vErr.Message)
			os.Exit(2)
		}
		if errors.Is(err, controller.ErrIncomeRequired) {
			fmt.Fprintln(os.Stderr, "Set this month's income first: spendlens set-income <amount>")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "dashboard":
		return a.dashboard()
	case "expenses":
		return a.expenses(args)
	case "payments":
		a.out.PaymentList(report.SortPaymentsByDue(a.state.Payments()))
		return nil
	case "gallery":
		a.out.Gallery(report.SortPhotosNewest(a.state.Photos()))
		return nil
	case "add":
		return a.addExpense(ctx, args)
	case "edit":
		return a.editExpense(ctx, args)
	case "delete":
		id, err := argID(args)
		if err != nil {
			return err
		}
		return a.ctrl.DeleteExpense(ctx, id)
	case "add-payment":
		return a.addPayment(ctx, args)
	case "pay":
		id, err := argID(args)
		if err != nil {
			return err
		}
		expense, err := a.ctrl.MarkPaymentDone(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded %s (%s) as expense #%d\n", expense.Description, expense.Amount, expense.ID)
		return nil
	case "delete-payment":
		id, err := argID(args)
		if err != nil {
			return err
		}
		return a.ctrl.DeletePayment(ctx, id)
	case "set-income":
		if len(args) != 1 {
			return fmt.Errorf("usage: spendlens set-income <amount>")
		}
		return a.ctrl.SetIncome(ctx, args[0])
	case "set-budget":
		return a.setBudget(ctx, args)
	case "set-name":
		if len(args) != 1 {
			return fmt.Errorf("usage: spendlens set-name <name>")
		}
		return a.ctrl.SetUserName(ctx, args[0])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) dashboard() error {
	key := core.MonthKeyFor(a.now)
	income, incomeSet := a.state.IncomeFor(key)
	expenses := a.state.Expenses()

	summary := report.SummarizeMonth(expenses, income, incomeSet, key, a.now)
	budget, hasBudget := a.state.BudgetFor(key)
	alerts := report.BudgetAlerts(expenses, budget, hasBudget, key)
	recent := report.Recent(report.FilterExpenses(expenses, report.TypeAll, report.TimeThisMonth, a.now), 5)

	a.out.Dashboard(a.state.UserName(), summary, alerts, recent)
	if !incomeSet {
		fmt.Println("\nNo income recorded this month: spendlens set-income <amount>")
	}
	return nil
}

func (a *app) expenses(args []string) error {
	fs := flag.NewFlagSet("expenses", flag.ContinueOnError)
	typeFilter := fs.String("type", "all", "all, personal or organization")
	timeFilter := fs.String("time", "all", "all, this-month, last-7-days, last-30-days or this-year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filtered := report.FilterExpenses(a.state.Expenses(),
		report.TypeFilter(*typeFilter), report.TimeFilter(*timeFilter), a.now)
	a.out.ExpenseTable(filtered)
	fmt.Println()
	a.out.CategoryBreakdown(report.CategoryTotals(filtered))
	return nil
}

func expenseFlags(fs *flag.FlagSet, form *controller.ExpenseForm, now time.Time) *string {
	fs.StringVar(&form.Date, "date", now.Format("2006-01-02"), "expense date (YYYY-MM-DD)")
	fs.StringVar(&form.Description, "desc", "", "description")
	fs.StringVar(&form.Category, "cat", "", "category")
	fs.StringVar(&form.Amount, "amount", "", "amount")
	fs.StringVar(&form.Type, "type", "personal", "personal or organization")
	fs.StringVar(&form.PaymentMethod, "method", "", "payment method")
	fs.StringVar(&form.Location, "location", "", "location")
	fs.StringVar(&form.Mood, "mood", "", "mood")
	return fs.String("receipt", "", "path to a receipt image to attach")
}

func (a *app) addExpense(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var form controller.ExpenseForm
	receiptPath := expenseFlags(fs, &form, a.now)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *receiptPath != "" {
		dataURL, err := encodeReceipt(*receiptPath)
		if err != nil {
			return err
		}
		form.ReceiptData = dataURL
	}

	saved, err := a.ctrl.AddExpense(ctx, form)
	if err != nil {
		return err
	}
	fmt.Printf("Added expense #%d: %s (%s)\n", saved.ID, saved.Description, saved.Amount)
	return nil
}

func (a *app) editExpense(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "expense id")
	var form controller.ExpenseForm
	receiptPath := expenseFlags(fs, &form, a.now)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("usage: spendlens edit -id N [flags]")
	}
	if *receiptPath != "" {
		dataURL, err := encodeReceipt(*receiptPath)
		if err != nil {
			return err
		}
		form.ReceiptData = dataURL
	}

	saved, err := a.ctrl.EditExpense(ctx, *id, form)
	if err != nil {
		return err
	}
	fmt.Printf("Updated expense #%d\n", saved.ID)
	return nil
}

func (a *app) addPayment(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-payment", flag.ContinueOnError)
	var form controller.PaymentForm
	fs.StringVar(&form.Description, "desc", "", "description")
	fs.StringVar(&form.Amount, "amount", "", "amount")
	fs.StringVar(&form.DueDate, "due", "", "due date (YYYY-MM-DD)")
	fs.StringVar(&form.RepeatDays, "repeat-days", "", "repeat interval in days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form.Repeats = form.RepeatDays != ""

	saved, err := a.ctrl.AddPayment(ctx, form)
	if err != nil {
		return err
	}
	fmt.Printf("Scheduled payment #%d: %s due %s\n", saved.ID, saved.Description, saved.DueDate)
	return nil
}

// categoryFlags collects repeated -cat Name=Amount pairs.
type categoryFlags map[string]string

func (c categoryFlags) String() string { return "" }

func (c categoryFlags) Set(value string) error {
	name, amount, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected Name=Amount, got %q", value)
	}
	c[name] = amount
	return nil
}

func (a *app) setBudget(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-budget", flag.ContinueOnError)
	total := fs.String("total", "", "total budget for this month")
	categories := categoryFlags{}
	fs.Var(categories, "cat", "category sub-limit as Name=Amount (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.ctrl.SetBudget(ctx, *total, categories)
}

func argID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one id argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

// encodeReceipt reads an image file into the data-URL form the API
// stores.
func encodeReceipt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read receipt %s: %w", path, err)
	}

	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
