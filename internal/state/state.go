// Package state holds the in-memory mirror of the remote store. The
// server is the source of truth: every mutator performs the remote call
// first and touches local collections only after it succeeds, so local
// and remote state never diverge on failure.
package state

import (
	"context"
	"fmt"
	"log/slog"

	"spendlens/internal/api"
	"spendlens/internal/core"
)

// DefaultUserName is the placeholder the server reports until the user
// has introduced themselves.
const DefaultUserName = "User"

// RemoteStore is the slice of the API client the state layer depends on.
type RemoteStore interface {
	FetchAll(ctx context.Context) (*api.Snapshot, error)
	SaveSetting(ctx context.Context, key string, value any) error
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	CreatePayment(ctx context.Context, p core.ScheduledPayment) (core.ScheduledPayment, error)
	UpdatePaymentDate(ctx context.Context, id int64, due core.Date) (core.ScheduledPayment, error)
	DeletePayment(ctx context.Context, id int64) error
	SavePhoto(ctx context.Context, p core.ReceiptPhoto) (core.ReceiptPhoto, error)
	DeletePhoto(ctx context.Context, expenseID int64) error
}

// State owns all session collections. It is mutated from a single
// execution context only; no internal locking.
type State struct {
	remote RemoteStore

	userName string
	expenses []core.Expense
	budgets  map[core.MonthKey]core.Budget
	incomes  map[core.MonthKey]core.Money
	payments []core.ScheduledPayment
	photos   []core.ReceiptPhoto
}

func New(remote RemoteStore) *State {
	return &State{
		remote:   remote,
		userName: DefaultUserName,
		budgets:  make(map[core.MonthKey]core.Budget),
		incomes:  make(map[core.MonthKey]core.Money),
	}
}

// Load replaces every collection wholesale from the remote store. On
// failure the state stays empty.
func (s *State) Load(ctx context.Context) error {
	snap, err := s.remote.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("load application data: %w", err)
	}

	s.userName = snap.UserName
	if s.userName == "" {
		s.userName = DefaultUserName
	}
	s.expenses = snap.AllExpenses
	s.payments = snap.UpcomingPayments
	s.photos = snap.AllBillPhotos
	s.budgets = snap.Budgets
	if s.budgets == nil {
		s.budgets = make(map[core.MonthKey]core.Budget)
	}
	s.incomes = snap.Incomes
	if s.incomes == nil {
		s.incomes = make(map[core.MonthKey]core.Money)
	}

	slog.InfoContext(ctx, "Application data loaded",
		"expenses", len(s.expenses),
		"payments", len(s.payments),
		"photos", len(s.photos),
		"budget_months", len(s.budgets),
		"income_months", len(s.incomes))
	return nil
}

// -- Read access ------------------------------------------------------------

func (s *State) UserName() string { return s.userName }

// Expenses returns a copy so callers cannot mutate the collection behind
// the state's back.
func (s *State) Expenses() []core.Expense {
	out := make([]core.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

func (s *State) Payments() []core.ScheduledPayment {
	out := make([]core.ScheduledPayment, len(s.payments))
	copy(out, s.payments)
	return out
}

func (s *State) Photos() []core.ReceiptPhoto {
	out := make([]core.ReceiptPhoto, len(s.photos))
	copy(out, s.photos)
	return out
}

func (s *State) BudgetFor(key core.MonthKey) (core.Budget, bool) {
	b, ok := s.budgets[key]
	return b, ok
}

func (s *State) IncomeFor(key core.MonthKey) (core.Money, bool) {
	m, ok := s.incomes[key]
	return m, ok
}

func (s *State) ExpenseByID(id int64) (core.Expense, bool) {
	for _, e := range s.expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

func (s *State) PaymentByID(id int64) (core.ScheduledPayment, bool) {
	for _, p := range s.payments {
		if p.ID == id {
			return p, true
		}
	}
	return core.ScheduledPayment{}, false
}

// PhotoForExpense looks up the receipt attached to an expense, if any.
func (s *State) PhotoForExpense(expenseID int64) (core.ReceiptPhoto, bool) {
	for _, p := range s.photos {
		if p.ExpenseID == expenseID {
			return p, true
		}
	}
	return core.ReceiptPhoto{}, false
}

// -- Mutators (remote first, local on success) ------------------------------

// SetUserName persists the display name, then applies it locally.
func (s *State) SetUserName(ctx context.Context, name string) error {
	if err := s.remote.SaveSetting(ctx, "userName", name); err != nil {
		return fmt.Errorf("save user name: %w", err)
	}
	s.userName = name
	return nil
}

// SetBudget stores the budget for one month. The settings endpoint takes
// the full budgets map, so the updated map is sent and swapped in whole.
func (s *State) SetBudget(ctx context.Context, key core.MonthKey, budget core.Budget) error {
	updated := make(map[core.MonthKey]core.Budget, len(s.budgets)+1)
	for k, v := range s.budgets {
		updated[k] = v
	}
	updated[key] = budget

	if err := s.remote.SaveSetting(ctx, "budgets", updated); err != nil {
		return fmt.Errorf("save budgets: %w", err)
	}
	s.budgets = updated
	return nil
}

// SetIncome stores the income for one month, same whole-map contract as
// SetBudget.
func (s *State) SetIncome(ctx context.Context, key core.MonthKey, amount core.Money) error {
	updated := make(map[core.MonthKey]core.Money, len(s.incomes)+1)
	for k, v := range s.incomes {
		updated[k] = v
	}
	updated[key] = amount

	if err := s.remote.SaveSetting(ctx, "incomes", updated); err != nil {
		return fmt.Errorf("save incomes: %w", err)
	}
	s.incomes = updated
	return nil
}

// UpsertExpense creates the expense when it has no identifier yet,
// otherwise updates it. Returns the server's stored copy.
func (s *State) UpsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == 0 {
		saved, err := s.remote.CreateExpense(ctx, e)
		if err != nil {
			return core.Expense{}, fmt.Errorf("create expense: %w", err)
		}
		s.expenses = append([]core.Expense{saved}, s.expenses...)
		return saved, nil
	}

	saved, err := s.remote.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	for i := range s.expenses {
		if s.expenses[i].ID == saved.ID {
			s.expenses[i] = saved
			break
		}
	}
	return saved, nil
}

// RemoveExpense deletes remotely, then locally, cascading to the linked
// receipt photo so the has-receipt invariant holds.
func (s *State) RemoveExpense(ctx context.Context, id int64) error {
	if err := s.remote.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	for i, e := range s.expenses {
		if e.ID != id {
			continue
		}
		s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
		if e.HasReceipt {
			s.dropPhotoLocally(id)
		}
		break
	}
	return nil
}

// UpsertPayment creates a payment, or advances the due date of an
// existing one (the only field the API updates).
func (s *State) UpsertPayment(ctx context.Context, p core.ScheduledPayment) (core.ScheduledPayment, error) {
	if p.ID == 0 {
		saved, err := s.remote.CreatePayment(ctx, p)
		if err != nil {
			return core.ScheduledPayment{}, fmt.Errorf("create payment: %w", err)
		}
		s.payments = append(s.payments, saved)
		return saved, nil
	}

	saved, err := s.remote.UpdatePaymentDate(ctx, p.ID, p.DueDate)
	if err != nil {
		return core.ScheduledPayment{}, fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	for i := range s.payments {
		if s.payments[i].ID == saved.ID {
			s.payments[i] = saved
			break
		}
	}
	return saved, nil
}

// RemovePayment deletes a scheduled payment remotely, then locally.
func (s *State) RemovePayment(ctx context.Context, id int64) error {
	if err := s.remote.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			break
		}
	}
	return nil
}

// UpsertPhoto stores the receipt for p.ExpenseID (replacing any previous
// one) and marks the owning expense as having a receipt.
func (s *State) UpsertPhoto(ctx context.Context, p core.ReceiptPhoto) (core.ReceiptPhoto, error) {
	saved, err := s.remote.SavePhoto(ctx, p)
	if err != nil {
		return core.ReceiptPhoto{}, fmt.Errorf("save photo for expense %d: %w", p.ExpenseID, err)
	}

	replaced := false
	for i := range s.photos {
		if s.photos[i].ExpenseID == saved.ExpenseID {
			s.photos[i] = saved
			replaced = true
			break
		}
	}
	if !replaced {
		s.photos = append([]core.ReceiptPhoto{saved}, s.photos...)
	}
	for i := range s.expenses {
		if s.expenses[i].ID == saved.ExpenseID {
			s.expenses[i].HasReceipt = true
			break
		}
	}
	return saved, nil
}

// RemovePhoto deletes the receipt for an expense remotely (the server
// clears the expense's flag too), then mirrors both changes locally.
func (s *State) RemovePhoto(ctx context.Context, expenseID int64) error {
	if err := s.remote.DeletePhoto(ctx, expenseID); err != nil {
		return fmt.Errorf("delete photo for expense %d: %w", expenseID, err)
	}
	s.dropPhotoLocally(expenseID)
	for i := range s.expenses {
		if s.expenses[i].ID == expenseID {
			s.expenses[i].HasReceipt = false
			break
		}
	}
	return nil
}

func (s *State) dropPhotoLocally(expenseID int64) {
	for i := range s.photos {
		if s.photos[i].ExpenseID == expenseID {
			s.photos = append(s.photos[:i], s.photos[i+1:]...)
			return
		}
	}
}
