package core

import (
	"errors"
	"strings"
	"time"
)

const (
	TypePersonal     ExpenseType = "personal"
	TypeOrganization ExpenseType = "organization"
)

type (
	// ExpenseType distinguishes personal spending from organization spending.
	ExpenseType string

	// MonthKey identifies a calendar month as "YYYY-MM". Budgets and incomes
	// are indexed by it.
	MonthKey string

	// Expense is a single recorded transaction. The JSON field names are the
	// wire format of the remote API.
	Expense struct {
		ID            int64       `json:"id"`
		Date          Date        `json:"date"`
		Description   string      `json:"desc"`
		Category      string      `json:"cat"`
		Amount        Money       `json:"amount"`
		Type          ExpenseType `json:"type"`
		PaymentMethod string      `json:"paymentMethod"`
		Location      string      `json:"location"`
		Mood          string      `json:"mood"`
		HasReceipt    bool        `json:"billPhoto"`
	}

	// ScheduledPayment is a future obligation not yet realized as an Expense.
	// Marking it done spawns an Expense; repeating payments then advance
	// their due date by RepeatDays, one-off payments are deleted.
	ScheduledPayment struct {
		ID          int64  `json:"id"`
		Description string `json:"desc"`
		Amount      Money  `json:"amount"`
		DueDate     Date   `json:"date"`
		Repeats     bool   `json:"isRepeating"`
		RepeatDays  int    `json:"repeatDays"`
	}

	// ReceiptPhoto is an image record linked to exactly one Expense.
	// ExpenseID is a lookup reference, not ownership: the photo row lives in
	// its own collection and must track the owning expense's HasReceipt flag.
	ReceiptPhoto struct {
		ID          int64  `json:"id"`
		ExpenseID   int64  `json:"expenseId"`
		DataURL     string `json:"dataUrl"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
	}

	// Budget holds a month's total limit plus optional per-category sub-limits.
	Budget struct {
		Total      Money            `json:"total"`
		Categories map[string]Money `json:"categories"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrZeroAmount       = errors.New("amount must be greater than zero")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidType      = errors.New("expense type must be personal or organization")
	ErrInvalidRepeat    = errors.New("repeat interval must be at least one day")
)

func (t ExpenseType) Valid() bool {
	switch t {
	case TypePersonal, TypeOrganization:
		return true
	default:
		return false
	}
}

// MonthKeyFor returns the MonthKey of the month containing t.
func MonthKeyFor(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

func (k MonthKey) Valid() bool {
	_, err := time.Parse("2006-01", string(k))
	return err == nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (p ScheduledPayment) Validate() error {
	if p.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(p.Description)) == 0 {
		return ErrEmptyDescription
	}
	if p.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	if p.Amount.Cents == 0 {
		return ErrZeroAmount
	}
	if p.Repeats && p.RepeatDays < 1 {
		return ErrInvalidRepeat
	}
	return nil
}

// Validate checks the soft budget invariant: the sum of category sub-limits
// must not exceed the total limit. Enforced client-side only.
func (b Budget) Validate() error {
	if b.Total.Cents < 0 {
		return ErrNegativeAmount
	}
	var sum int64
	for _, m := range b.Categories {
		if m.Cents < 0 {
			return ErrNegativeAmount
		}
		sum += m.Cents
	}
	if sum > b.Total.Cents {
		return errors.New("category budgets exceed total budget")
	}
	return nil
}
