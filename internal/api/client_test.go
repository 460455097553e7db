package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spendlens/internal/core"
)

func TestFetchAllDecodesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/data" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"userName": "Asha",
			"allExpenses": [{"id": 1, "date": "2024-06-15", "desc": "Lunch", "cat": "Food & Dining", "amount": 250.50, "type": "personal", "paymentMethod": "Cash", "location": "", "mood": "", "billPhoto": false}],
			"budgets": {"2024-06": {"total": 1000, "categories": {"Food & Dining": 200}}},
			"incomes": {"2024-06": 55000},
			"upcomingPayments": [{"id": 3, "desc": "Rent", "amount": 15000, "date": "2024-07-01", "isRepeating": true, "repeatDays": 30}],
			"allBillPhotos": []
		}`))
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL, time.Second).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if snap.UserName != "Asha" {
		t.Fatalf("unexpected user name %q", snap.UserName)
	}
	if len(snap.AllExpenses) != 1 || snap.AllExpenses[0].Amount.Cents != 25050 {
		t.Fatalf("unexpected expenses %+v", snap.AllExpenses)
	}
	budget, ok := snap.Budgets["2024-06"]
	if !ok || budget.Total.Cents != 100000 {
		t.Fatalf("unexpected budgets %+v", snap.Budgets)
	}
	if budget.Categories["Food & Dining"].Cents != 20000 {
		t.Fatalf("unexpected category budget %+v", budget.Categories)
	}
	if snap.Incomes["2024-06"].Cents != 5500000 {
		t.Fatalf("unexpected incomes %+v", snap.Incomes)
	}
	if len(snap.UpcomingPayments) != 1 || !snap.UpcomingPayments[0].Repeats {
		t.Fatalf("unexpected payments %+v", snap.UpcomingPayments)
	}
}

func TestRequestErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "Expense not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).DeleteExpense(context.Background(), 42)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusNotFound || reqErr.Message != "Expense not found" {
		t.Fatalf("unexpected error detail %+v", reqErr)
	}
	if reqErr.Error() != "Expense not found" {
		t.Fatalf("error text should be the server message, got %q", reqErr.Error())
	}
}

func TestRequestErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).SaveSetting(context.Background(), "userName", "Asha")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Error() != "server error: 502" {
		t.Fatalf("expected fallback message, got %q", reqErr.Error())
	}
}

func TestNoContentLeavesOutputUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sentinel := core.Expense{ID: -1, Description: "untouched"}
	got := sentinel
	if err := c.do(context.Background(), http.MethodDelete, "/api/expenses/1", nil, &got); err != nil {
		t.Fatalf("204 should not be an error: %v", err)
	}
	if got != sentinel {
		t.Fatalf("204 must not decode into output: %+v", got)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := NewClient(srv.URL, time.Second).FetchAll(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestCreateExpenseSendsWireFormat(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 9, "date": "2024-06-15", "desc": "Lunch", "cat": "Food & Dining", "amount": 250.50, "type": "personal", "paymentMethod": "Cash", "location": "", "mood": "", "billPhoto": false}`))
	}))
	defer srv.Close()

	e := core.Expense{
		Date:          core.NewDate(2024, 6, 15),
		Description:   "Lunch",
		Category:      "Food & Dining",
		Amount:        core.CentsOf(25050),
		Type:          core.TypePersonal,
		PaymentMethod: "Cash",
	}
	saved, err := NewClient(srv.URL, time.Second).CreateExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if saved.ID != 9 {
		t.Fatalf("expected server-assigned id 9, got %d", saved.ID)
	}
	for _, field := range []string{`"desc":"Lunch"`, `"cat":"Food & Dining"`, `"amount":250.50`, `"date":"2024-06-15"`, `"billPhoto":false`} {
		if !strings.Contains(gotBody, field) {
			t.Fatalf("request body missing %s: %s", field, gotBody)
		}
	}
}
