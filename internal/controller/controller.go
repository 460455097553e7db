// Package controller sequences user-initiated operations: it validates
// form input before any network call, drives the remote-then-local
// mutation through the state layer, and surfaces every remote failure as
// a blocking notification. Sub-steps of one operation run strictly in
// order; if an earlier step fails, later steps never run.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/api"
	"spendlens/internal/core"
	"spendlens/internal/state"
)

// ErrIncomeRequired blocks expense entry until the current month's income
// is recorded; the caller responds by prompting for income first.
var ErrIncomeRequired = errors.New("income not set for the current month")

// Notifier shows a blocking message to the user. Remote failures always
// go through it.
type Notifier interface {
	Notify(message string)
}

// ValidationError is a client-side rejection raised before any network
// call. Field names the offending input so the caller can focus it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExpenseForm carries raw expense input. ReceiptData holds the attached
// image as a data URL, empty when nothing was attached.
type ExpenseForm struct {
	Date          string
	Description   string
	Category      string
	Amount        string
	Type          string
	PaymentMethod string
	Location      string
	Mood          string
	ReceiptData   string
}

// PaymentForm carries raw scheduled-payment input.
type PaymentForm struct {
	Description string
	Amount      string
	DueDate     string
	Repeats     bool
	RepeatDays  string
}

// Controller binds user actions to state mutations.
type Controller struct {
	state    *state.State
	notifier Notifier
	now      func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(st *state.State, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		state:    st,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// currentMonth is the key all "this month" gates use.
func (c *Controller) currentMonth() core.MonthKey {
	return core.MonthKeyFor(c.now())
}

// NeedsWelcome reports whether the user has never set a display name.
func (c *Controller) NeedsWelcome() bool {
	return c.state.UserName() == state.DefaultUserName
}

// SetUserName stores the display name entered in the welcome/rename flow.
func (c *Controller) SetUserName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", "Please enter your name.")
	}
	if err := c.state.SetUserName(ctx, name); err != nil {
		c.notifyFailure(err)
		return err
	}
	return nil
}

// SetIncome records the current month's income.
func (c *Controller) SetIncome(ctx context.Context, amount string) error {
	money, err := core.ParseAmount(amount)
	if err != nil {
		return invalid("amount", "Please enter a valid income amount.")
	}
	if err := c.state.SetIncome(ctx, c.currentMonth(), money); err != nil {
		c.notifyFailure(err)
		return err
	}
	return nil
}

// SetBudget records the current month's total budget plus per-category
// sub-limits. The category sum must not exceed the total; this is checked
// here only, the server does not re-verify.
func (c *Controller) SetBudget(ctx context.Context, total string, categories map[string]string) error {
	totalMoney, err := core.ParseAmount(total)
	if err != nil {
		return invalid("total", "Please enter a valid total budget amount.")
	}

	budget := core.Budget{Total: totalMoney, Categories: make(map[string]core.Money)}
	var categorySum core.Money
	for name, raw := range categories {
		amount, err := core.ParseAmount(raw)
		if err != nil {
			return invalid("categories", fmt.Sprintf("Invalid budget amount for %s.", name))
		}
		if amount.Cents == 0 {
			continue
		}
		budget.Categories[name] = budget.Categories[name].Add(amount)
		categorySum = categorySum.Add(amount)
	}
	if categorySum.Cents > totalMoney.Cents {
		return invalid("categories", fmt.Sprintf(
			"The sum of your category budgets (%s) exceeds your total budget (%s).",
			categorySum, totalMoney))
	}

	if err := c.state.SetBudget(ctx, c.currentMonth(), budget); err != nil {
		c.notifyFailure(err)
		return err
	}
	return nil
}

// AddExpense records a new expense. It is blocked until the current
// month's income is set. When a receipt is attached, the expense is
// created first and the photo uploaded against the server-assigned
// identifier; local state reflects each step only after it succeeds.
func (c *Controller) AddExpense(ctx context.Context, form ExpenseForm) (core.Expense, error) {
	if _, ok := c.state.IncomeFor(c.currentMonth()); !ok {
		return core.Expense{}, ErrIncomeRequired
	}

	expense, err := c.expenseFromForm(form)
	if err != nil {
		return core.Expense{}, err
	}
	expense.HasReceipt = form.ReceiptData != ""

	saved, err := c.state.UpsertExpense(ctx, expense)
	if err != nil {
		c.notifyFailure(err)
		return core.Expense{}, err
	}

	if form.ReceiptData != "" {
		if _, err := c.attachReceipt(ctx, saved, form.ReceiptData); err != nil {
			return core.Expense{}, err
		}
	}

	slog.InfoContext(ctx, "Expense added",
		"id", saved.ID,
		"amount", saved.Amount.String(),
		"category", saved.Category,
		"receipt", saved.HasReceipt)
	return saved, nil
}

// EditExpense merges form fields into an existing expense. The receipt
// flag is preserved unless a new image is supplied; when only the
// descriptive fields changed and a receipt exists, the receipt's
// description is re-synced to match.
func (c *Controller) EditExpense(ctx context.Context, id int64, form ExpenseForm) (core.Expense, error) {
	existing, ok := c.state.ExpenseByID(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d not found", id)
	}

	merged, err := c.expenseFromForm(form)
	if err != nil {
		return core.Expense{}, err
	}
	merged.ID = existing.ID
	newReceipt := form.ReceiptData != ""
	merged.HasReceipt = existing.HasReceipt || newReceipt

	saved, err := c.state.UpsertExpense(ctx, merged)
	if err != nil {
		c.notifyFailure(err)
		return core.Expense{}, err
	}

	if newReceipt {
		if _, err := c.attachReceipt(ctx, saved, form.ReceiptData); err != nil {
			return core.Expense{}, err
		}
	} else if saved.HasReceipt {
		if photo, ok := c.state.PhotoForExpense(saved.ID); ok {
			want := receiptDescription(saved)
			if photo.Description != want {
				photo.Description = want
				if _, err := c.state.UpsertPhoto(ctx, photo); err != nil {
					c.notifyFailure(err)
					return core.Expense{}, err
				}
			}
		}
	}
	return saved, nil
}

// DeleteExpense removes an expense; the state layer cascades to the
// linked receipt photo.
func (c *Controller) DeleteExpense(ctx context.Context, id int64) error {
	if err := c.state.RemoveExpense(ctx, id); err != nil {
		c.notifyFailure(err)
		return err
	}
	return nil
}

// DeleteReceipt drops the photo attached to an expense and clears its
// receipt flag, remotely then locally.
func (c *Controller) DeleteReceipt(ctx context.Context, expenseID int64) error {
	if err := c.state.RemovePhoto(ctx, expenseID); err != nil {
		c.notifyFailure(err)
		return err
	}
	return nil
}

// AddPayment schedules a new payment.
func (c *Controller) AddPayment(ctx context.Context, form PaymentForm) (core.ScheduledPayment, error) {
	payment, err := c.paymentFromForm(form)
	if err != nil {
		return core.ScheduledPayment{}, err
	}
	saved, err := c.state.UpsertPayment(ctx, payment)
	if err != nil {
		c.notifyFailure(err)
		return core.ScheduledPayment{}, err
	}
	return saved, nil
}

// DeletePayment removes a scheduled payment outright.
func (c *Controller) DeletePayment(ctx context.Context, id int64) error {
	if err := c.state.RemovePayment(ctx, id); err != nil {
		c.notifyFailure(err)
		return err
	}
	return nil
}

// MarkPaymentDone realizes a scheduled payment as an expense. Step one
// creates the expense mirroring the payment's date, description and
// amount; only if that succeeds does step two run: a repeating payment
// has its due date advanced by the repeat interval, a one-off payment is
// deleted.
func (c *Controller) MarkPaymentDone(ctx context.Context, id int64) (core.Expense, error) {
	payment, ok := c.state.PaymentByID(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("payment %d not found", id)
	}

	expense := core.Expense{
		Date:          payment.DueDate,
		Description:   payment.Description,
		Category:      "Other",
		Amount:        payment.Amount,
		Type:          core.TypePersonal,
		PaymentMethod: "Bank Transfer",
		Location:      "Scheduled Payment",
		Mood:          "😌 Satisfied",
	}
	saved, err := c.state.UpsertExpense(ctx, expense)
	if err != nil {
		c.notifyFailure(err)
		return core.Expense{}, err
	}

	if payment.Repeats && payment.RepeatDays > 0 {
		payment.DueDate = payment.DueDate.AddDays(payment.RepeatDays)
		if _, err := c.state.UpsertPayment(ctx, payment); err != nil {
			c.notifyFailure(err)
			return saved, err
		}
	} else {
		if err := c.state.RemovePayment(ctx, id); err != nil {
			c.notifyFailure(err)
			return saved, err
		}
	}

	slog.InfoContext(ctx, "Scheduled payment realized",
		"payment_id", id,
		"expense_id", saved.ID,
		"repeats", payment.Repeats)
	return saved, nil
}

// attachReceipt uploads a receipt photo linked to the saved expense.
func (c *Controller) attachReceipt(ctx context.Context, expense core.Expense, dataURL string) (core.ReceiptPhoto, error) {
	photo := core.ReceiptPhoto{
		ExpenseID:   expense.ID,
		DataURL:     dataURL,
		Date:        expense.Date,
		Description: receiptDescription(expense),
	}
	saved, err := c.state.UpsertPhoto(ctx, photo)
	if err != nil {
		c.notifyFailure(err)
		return core.ReceiptPhoto{}, err
	}
	return saved, nil
}

func (c *Controller) expenseFromForm(form ExpenseForm) (core.Expense, error) {
	date, err := core.ParseDate(strings.TrimSpace(form.Date))
	if err != nil {
		return core.Expense{}, invalid("date", "Please enter a valid date.")
	}
	amount, err := core.ParseAmount(form.Amount)
	if err != nil {
		return core.Expense{}, invalid("amount", "Please enter a valid amount.")
	}

	expense := core.Expense{
		Date:          date,
		Description:   strings.TrimSpace(form.Description),
		Category:      strings.TrimSpace(form.Category),
		Amount:        amount,
		Type:          core.ExpenseType(form.Type),
		PaymentMethod: strings.TrimSpace(form.PaymentMethod),
		Location:      strings.TrimSpace(form.Location),
		Mood:          strings.TrimSpace(form.Mood),
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, invalid("form", err.Error())
	}
	return expense, nil
}

func (c *Controller) paymentFromForm(form PaymentForm) (core.ScheduledPayment, error) {
	due, err := core.ParseDate(strings.TrimSpace(form.DueDate))
	if err != nil {
		return core.ScheduledPayment{}, invalid("date", "Please enter a valid due date.")
	}
	amount, err := core.ParseAmount(form.Amount)
	if err != nil || amount.Cents == 0 {
		return core.ScheduledPayment{}, invalid("amount", "Please enter a valid amount.")
	}

	payment := core.ScheduledPayment{
		Description: strings.TrimSpace(form.Description),
		Amount:      amount,
		DueDate:     due,
		Repeats:     form.Repeats,
	}
	if form.Repeats {
		days, err := strconv.Atoi(strings.TrimSpace(form.RepeatDays))
		if err != nil || days < 1 {
			return core.ScheduledPayment{}, invalid("repeatDays", "Please enter a valid number of days to repeat.")
		}
		payment.RepeatDays = days
	}
	if err := payment.Validate(); err != nil {
		return core.ScheduledPayment{}, invalid("form", err.Error())
	}
	return payment, nil
}

func receiptDescription(e core.Expense) string {
	return e.Description + " (" + e.Category + ")"
}

func (c *Controller) notifyFailure(err error) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(fmt.Sprintf("Error: %s. Please try again.", failureMessage(err)))
}

// failureMessage prefers the server's own text for request failures and
// a generic line when the transport itself broke.
func failureMessage(err error) string {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Error()
	}
	var transErr *api.TransportError
	if errors.As(err, &transErr) {
		return "could not reach the server"
	}
	return err.Error()
}
