package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"spendlens/internal/api"
	"spendlens/internal/core"
	"spendlens/internal/server/events"
	"spendlens/internal/server/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// handleData assembles the full application snapshot: settings plus
// every collection, in one payload.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := api.Snapshot{UserName: "User"}

	if raw, ok, err := s.repo.GetSetting(ctx, "userName"); err != nil {
		s.internalError(w, r, "load user name", err)
		return
	} else if ok {
		if err := json.Unmarshal(raw, &snap.UserName); err != nil {
			s.internalError(w, r, "decode user name", err)
			return
		}
	}

	if raw, ok, err := s.repo.GetSetting(ctx, "budgets"); err != nil {
		s.internalError(w, r, "load budgets", err)
		return
	} else if ok {
		if err := json.Unmarshal(raw, &snap.Budgets); err != nil {
			s.internalError(w, r, "decode budgets", err)
			return
		}
	}

	if raw, ok, err := s.repo.GetSetting(ctx, "incomes"); err != nil {
		s.internalError(w, r, "load incomes", err)
		return
	} else if ok {
		if err := json.Unmarshal(raw, &snap.Incomes); err != nil {
			s.internalError(w, r, "decode incomes", err)
			return
		}
	}

	var err error
	if snap.AllExpenses, err = s.repo.ListExpenses(ctx); err != nil {
		s.internalError(w, r, "list expenses", err)
		return
	}
	if snap.UpcomingPayments, err = s.repo.ListPayments(ctx); err != nil {
		s.internalError(w, r, "list payments", err)
		return
	}
	if snap.AllBillPhotos, err = s.repo.ListPhotos(ctx); err != nil {
		s.internalError(w, r, "list photos", err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleSaveSetting stores one {key, value} pair; value is kept as the
// raw JSON the client sent.
func (s *Server) handleSaveSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Key == "" || len(body.Value) == 0 {
		writeError(w, http.StatusBadRequest, "Missing key or value")
		return
	}

	if err := s.repo.SetSetting(r.Context(), body.Key, body.Value); err != nil {
		s.internalError(w, r, "save setting", err)
		return
	}
	s.events.PublishSettingChange(r.Context(), body.Key)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e.ID = 0
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.repo.CreateExpense(r.Context(), e)
	if err != nil {
		s.internalError(w, r, "create expense", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityExpense, events.ActionCreated, saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e.ID = pathID(r)
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.repo.UpdateExpense(r.Context(), e)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "update expense", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityExpense, events.ActionUpdated, saved.ID)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	err := s.repo.DeleteExpense(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "delete expense", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityExpense, events.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.ScheduledPayment
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p.ID = 0
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.repo.CreatePayment(r.Context(), p)
	if err != nil {
		s.internalError(w, r, "create payment", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityPayment, events.ActionCreated, saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

// handleUpdatePayment accepts {"date": "YYYY-MM-DD"}; the due date is the
// only field a payment update may change.
func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date core.Date `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "Missing date")
		return
	}

	saved, err := s.repo.UpdatePaymentDate(r.Context(), pathID(r), body.Date)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Payment not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "update payment", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityPayment, events.ActionUpdated, saved.ID)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	err := s.repo.DeletePayment(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Payment not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "delete payment", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityPayment, events.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSavePhoto inserts or replaces the receipt for the expense named
// in the body; the expense's receipt flag is set in the same transaction.
func (s *Server) handleSavePhoto(w http.ResponseWriter, r *http.Request) {
	var p core.ReceiptPhoto
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if p.ExpenseID <= 0 || p.DataURL == "" {
		writeError(w, http.StatusBadRequest, "Missing expenseId or dataUrl")
		return
	}
	if p.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "Missing date")
		return
	}

	saved, err := s.repo.UpsertPhoto(r.Context(), p)
	if err != nil {
		s.internalError(w, r, "save photo", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityPhoto, events.ActionCreated, saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

// handleDeletePhoto removes the photo attached to the expense in the
// path and clears that expense's receipt flag.
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	expenseID := pathID(r)
	err := s.repo.DeletePhoto(r.Context(), expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "delete photo", err)
		return
	}
	s.events.PublishChange(r.Context(), events.EntityPhoto, events.ActionDeleted, expenseID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.ErrorContext(r.Context(), "Request failed", "op", op, "error", err, "url", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
