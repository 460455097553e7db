// Package api implements the HTTP client for the Spendlens remote store.
// The server is the source of truth; every call here either succeeds
// against it or reports a typed failure, never partially applies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/core"
)

// Snapshot is the full application payload returned by GET /api/data.
type Snapshot struct {
	UserName         string                        `json:"userName"`
	AllExpenses      []core.Expense                `json:"allExpenses"`
	Budgets          map[core.MonthKey]core.Budget `json:"budgets"`
	Incomes          map[core.MonthKey]core.Money  `json:"incomes"`
	UpcomingPayments []core.ScheduledPayment       `json:"upcomingPayments"`
	AllBillPhotos    []core.ReceiptPhoto           `json:"allBillPhotos"`
}

// Client talks JSON over HTTP to the remote store.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the API at baseURL. Requests share a
// single timeout; there is no retry and no request queueing.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do performs one request. A nil out skips body decoding; a 204 or empty
// 2xx body leaves out untouched so callers can tell "no content" apart
// from a decoded payload.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "Request transport failure", "op", op, "error", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Request completed",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := extractErrorMessage(resp.Body)
		slog.ErrorContext(ctx, "Request rejected", "op", op, "status", resp.StatusCode, "message", msg)
		return &RequestError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// extractErrorMessage pulls the server's {"error": "..."} text out of a
// failure body, tolerating non-JSON responses.
func extractErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// FetchAll loads the whole application snapshot.
func (c *Client) FetchAll(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/data", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSetting persists one named setting (userName, budgets or incomes).
func (c *Client) SaveSetting(ctx context.Context, key string, value any) error {
	body := struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}{Key: key, Value: value}
	return c.do(ctx, http.MethodPost, "/api/settings", body, nil)
}

// CreateExpense stores a new expense and returns the server's copy,
// including the assigned identifier.
func (c *Client) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var saved core.Expense
	if err := c.do(ctx, http.MethodPost, "/api/expenses", e, &saved); err != nil {
		return core.Expense{}, err
	}
	return saved, nil
}

// UpdateExpense overwrites the expense with e.ID and returns the stored row.
func (c *Client) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var saved core.Expense
	if err := c.do(ctx, http.MethodPut, "/api/expenses/"+formatID(e.ID), e, &saved); err != nil {
		return core.Expense{}, err
	}
	return saved, nil
}

// DeleteExpense removes the expense; the server also drops its photo.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+formatID(id), nil, nil)
}

// CreatePayment stores a new scheduled payment.
func (c *Client) CreatePayment(ctx context.Context, p core.ScheduledPayment) (core.ScheduledPayment, error) {
	var saved core.ScheduledPayment
	if err := c.do(ctx, http.MethodPost, "/api/payments", p, &saved); err != nil {
		return core.ScheduledPayment{}, err
	}
	return saved, nil
}

// UpdatePaymentDate advances a payment's due date and returns the stored row.
func (c *Client) UpdatePaymentDate(ctx context.Context, id int64, due core.Date) (core.ScheduledPayment, error) {
	body := struct {
		Date core.Date `json:"date"`
	}{Date: due}
	var saved core.ScheduledPayment
	if err := c.do(ctx, http.MethodPut, "/api/payments/"+formatID(id), body, &saved); err != nil {
		return core.ScheduledPayment{}, err
	}
	return saved, nil
}

// DeletePayment removes a scheduled payment.
func (c *Client) DeletePayment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/payments/"+formatID(id), nil, nil)
}

// SavePhoto inserts or replaces the receipt photo for p.ExpenseID.
func (c *Client) SavePhoto(ctx context.Context, p core.ReceiptPhoto) (core.ReceiptPhoto, error) {
	var saved core.ReceiptPhoto
	if err := c.do(ctx, http.MethodPost, "/api/photos", p, &saved); err != nil {
		return core.ReceiptPhoto{}, err
	}
	return saved, nil
}

// DeletePhoto removes the photo attached to an expense; the server clears
// the expense's receipt flag as part of the same operation.
func (c *Client) DeletePhoto(ctx context.Context, expenseID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/photos/"+formatID(expenseID), nil, nil)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
