package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/api"
	"spendlens/internal/core"
)

// fakeRemote implements RemoteStore in memory. Setting one of the err
// fields makes the matching call fail without touching anything.
type fakeRemote struct {
	snapshot *api.Snapshot
	nextID   int64

	settings map[string]any

	fetchErr         error
	settingErr       error
	createExpenseErr error
	updateExpenseErr error
	deleteExpenseErr error
	createPaymentErr error
	updatePaymentErr error
	deletePaymentErr error
	savePhotoErr     error
	deletePhotoErr   error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{nextID: 100, settings: make(map[string]any)}
}

func (f *fakeRemote) FetchAll(ctx context.Context) (*api.Snapshot, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.snapshot, nil
}

func (f *fakeRemote) SaveSetting(ctx context.Context, key string, value any) error {
	if f.settingErr != nil {
		return f.settingErr
	}
	f.settings[key] = value
	return nil
}

func (f *fakeRemote) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if f.createExpenseErr != nil {
		return core.Expense{}, f.createExpenseErr
	}
	f.nextID++
	e.ID = f.nextID
	return e, nil
}

func (f *fakeRemote) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if f.updateExpenseErr != nil {
		return core.Expense{}, f.updateExpenseErr
	}
	return e, nil
}

func (f *fakeRemote) DeleteExpense(ctx context.Context, id int64) error {
	return f.deleteExpenseErr
}

func (f *fakeRemote) CreatePayment(ctx context.Context, p core.ScheduledPayment) (core.ScheduledPayment, error) {
	if f.createPaymentErr != nil {
		return core.ScheduledPayment{}, f.createPaymentErr
	}
	f.nextID++
	p.ID = f.nextID
	return p, nil
}

func (f *fakeRemote) UpdatePaymentDate(ctx context.Context, id int64, due core.Date) (core.ScheduledPayment, error) {
	if f.updatePaymentErr != nil {
		return core.ScheduledPayment{}, f.updatePaymentErr
	}
	return core.ScheduledPayment{ID: id, DueDate: due}, nil
}

func (f *fakeRemote) DeletePayment(ctx context.Context, id int64) error {
	return f.deletePaymentErr
}

func (f *fakeRemote) SavePhoto(ctx context.Context, p core.ReceiptPhoto) (core.ReceiptPhoto, error) {
	if f.savePhotoErr != nil {
		return core.ReceiptPhoto{}, f.savePhotoErr
	}
	if p.ID == 0 {
		f.nextID++
		p.ID = f.nextID
	}
	return p, nil
}

func (f *fakeRemote) DeletePhoto(ctx context.Context, expenseID int64) error {
	return f.deletePhotoErr
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func expenseFixture(t *testing.T, id int64, date string, hasReceipt bool) core.Expense {
	return core.Expense{
		ID:          id,
		Date:        mustDate(t, date),
		Description: "Lunch",
		Category:    "Food & Dining",
		Amount:      core.CentsOf(1250),
		Type:        core.TypePersonal,
		HasReceipt:  hasReceipt,
	}
}

func TestLoadReplacesCollections(t *testing.T) {
	remote := newFakeRemote()
	remote.snapshot = &api.Snapshot{
		UserName:    "Ada",
		AllExpenses: []core.Expense{expenseFixture(t, 1, "2024-06-01", false)},
		Budgets: map[core.MonthKey]core.Budget{
			"2024-06": {Total: core.CentsOf(100000)},
		},
		Incomes: map[core.MonthKey]core.Money{
			"2024-06": core.CentsOf(250000),
		},
	}

	st := New(remote)
	require.NoError(t, st.Load(context.Background()))

	assert.Equal(t, "Ada", st.UserName())
	assert.Len(t, st.Expenses(), 1)
	income, ok := st.IncomeFor("2024-06")
	require.True(t, ok)
	assert.Equal(t, int64(250000), income.Cents)
}

func TestLoadDefaultsUserName(t *testing.T) {
	remote := newFakeRemote()
	remote.snapshot = &api.Snapshot{}

	st := New(remote)
	require.NoError(t, st.Load(context.Background()))
	assert.Equal(t, DefaultUserName, st.UserName())
}

func TestUpsertExpenseCreatePrependsServerCopy(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	_, err := st.UpsertExpense(context.Background(), expenseFixture(t, 5, "2024-06-01", false))
	require.NoError(t, err)

	e := expenseFixture(t, 0, "2024-06-02", false)
	saved, err := st.UpsertExpense(context.Background(), e)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	expenses := st.Expenses()
	require.Len(t, expenses, 2)
	assert.Equal(t, saved.ID, expenses[0].ID, "new expense goes to the front")
}

func TestUpsertExpenseFailedCreateLeavesStateUntouched(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	existing, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)

	remote.createExpenseErr = errors.New("boom")
	_, err = st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-02", false))
	require.Error(t, err)

	expenses := st.Expenses()
	require.Len(t, expenses, 1, "failed create must not change the collection")
	assert.Equal(t, existing, expenses[0])
}

func TestUpsertExpenseUpdateReplacesInPlace(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)

	saved.Description = "Dinner"
	updated, err := st.UpsertExpense(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, "Dinner", st.Expenses()[0].Description)
}

func TestRemoveExpenseCascadesToPhoto(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)
	_, err = st.UpsertPhoto(context.Background(), core.ReceiptPhoto{
		ExpenseID: saved.ID,
		DataURL:   "data:image/png;base64,xyz",
		Date:      saved.Date,
	})
	require.NoError(t, err)
	require.Len(t, st.Photos(), 1)

	require.NoError(t, st.RemoveExpense(context.Background(), saved.ID))
	assert.Empty(t, st.Expenses())
	assert.Empty(t, st.Photos(), "linked photo must be removed with its expense")
}

func TestRemoveExpenseWithoutPhotoLeavesGalleryAlone(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	withPhoto, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)
	_, err = st.UpsertPhoto(context.Background(), core.ReceiptPhoto{ExpenseID: withPhoto.ID, DataURL: "data:x"})
	require.NoError(t, err)
	plain, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-02", false))
	require.NoError(t, err)

	require.NoError(t, st.RemoveExpense(context.Background(), plain.ID))
	assert.Len(t, st.Photos(), 1, "unrelated photo must survive")
}

func TestRemoveExpenseRemoteFailureKeepsExpense(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)

	remote.deleteExpenseErr = errors.New("boom")
	require.Error(t, st.RemoveExpense(context.Background(), saved.ID))
	assert.Len(t, st.Expenses(), 1)
}

func TestUpsertPhotoMarksExpenseAndReplaces(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)

	_, err = st.UpsertPhoto(context.Background(), core.ReceiptPhoto{ExpenseID: saved.ID, DataURL: "data:first"})
	require.NoError(t, err)
	assert.True(t, st.Expenses()[0].HasReceipt)

	// A second upload for the same expense replaces, never duplicates.
	_, err = st.UpsertPhoto(context.Background(), core.ReceiptPhoto{ExpenseID: saved.ID, DataURL: "data:second"})
	require.NoError(t, err)
	photos := st.Photos()
	require.Len(t, photos, 1)
	assert.Equal(t, "data:second", photos[0].DataURL)
}

func TestRemovePhotoClearsReceiptFlag(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertExpense(context.Background(), expenseFixture(t, 0, "2024-06-01", false))
	require.NoError(t, err)
	_, err = st.UpsertPhoto(context.Background(), core.ReceiptPhoto{ExpenseID: saved.ID, DataURL: "data:x"})
	require.NoError(t, err)

	require.NoError(t, st.RemovePhoto(context.Background(), saved.ID))
	assert.Empty(t, st.Photos())
	assert.False(t, st.Expenses()[0].HasReceipt)
}

func TestSetBudgetSendsWholeMap(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	require.NoError(t, st.SetBudget(context.Background(), "2024-05", core.Budget{Total: core.CentsOf(50000)}))
	require.NoError(t, st.SetBudget(context.Background(), "2024-06", core.Budget{Total: core.CentsOf(80000)}))

	sent, ok := remote.settings["budgets"].(map[core.MonthKey]core.Budget)
	require.True(t, ok)
	assert.Len(t, sent, 2, "settings endpoint receives the full budgets map")

	b, ok := st.BudgetFor("2024-06")
	require.True(t, ok)
	assert.Equal(t, int64(80000), b.Total.Cents)
}

func TestSetIncomeFailureKeepsLocalMap(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	require.NoError(t, st.SetIncome(context.Background(), "2024-06", core.CentsOf(250000)))

	remote.settingErr = errors.New("boom")
	require.Error(t, st.SetIncome(context.Background(), "2024-07", core.CentsOf(100)))

	_, ok := st.IncomeFor("2024-07")
	assert.False(t, ok, "failed save must not leak into local state")
	income, ok := st.IncomeFor("2024-06")
	require.True(t, ok)
	assert.Equal(t, int64(250000), income.Cents)
}

func TestUpsertPaymentCreateAndAdvance(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertPayment(context.Background(), core.ScheduledPayment{
		Description: "Rent",
		Amount:      core.CentsOf(90000),
		DueDate:     mustDate(t, "2024-06-01"),
		Repeats:     true,
		RepeatDays:  30,
	})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	saved.DueDate = saved.DueDate.AddDays(30)
	advanced, err := st.UpsertPayment(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", advanced.DueDate.String())

	payments := st.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, "2024-07-01", payments[0].DueDate.String())
}

func TestRemovePayment(t *testing.T) {
	remote := newFakeRemote()
	st := New(remote)
	saved, err := st.UpsertPayment(context.Background(), core.ScheduledPayment{
		Description: "Gym",
		Amount:      core.CentsOf(3000),
		DueDate:     mustDate(t, "2024-06-10"),
	})
	require.NoError(t, err)

	require.NoError(t, st.RemovePayment(context.Background(), saved.ID))
	assert.Empty(t, st.Payments())
}
