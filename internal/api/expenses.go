package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tanq16/expensesync/internal/storage"
)

type createResponse struct {
	ExpenseID string `json:"expenseId"`
}

type deleteResponse struct {
	Status    string `json:"status"`
	ExpenseID string `json:"expenseId"`
}

func (h *Handler) Expenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listExpenses(w, r)
	case http.MethodPost:
		h.createExpense(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
	}
}

func (h *Handler) listExpenses(w http.ResponseWriter, _ *http.Request) {
	expenses, err := h.storage.GetAllExpenses()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list expenses")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to list expenses"})
		return
	}
	switch h.opts.Shape {
	case ShapeItems:
		writeJSON(w, http.StatusOK, map[string]any{"Items": expenses, "Count": len(expenses)})
	case ShapeExpenses:
		writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
	case ShapeTyped:
		items := make([]map[string]any, 0, len(expenses))
		for _, e := range expenses {
			items = append(items, typedItem(e))
		}
		writeJSON(w, http.StatusOK, map[string]any{"Items": items, "Count": len(items)})
	default:
		writeJSON(w, http.StatusOK, expenses)
	}
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var draft storage.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := draft.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if draft.Date == "" {
		draft.Date = time.Now().Format(time.DateOnly)
	}
	expense, err := h.storage.AddExpense(storage.Expense{
		ID:       uuid.New().String(),
		Title:    draft.Title,
		Amount:   draft.Amount,
		Date:     draft.Date,
		Category: draft.Category,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create expense")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to create expense"})
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ExpenseID: expense.ID})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/expenses/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid expense id"})
		return
	}
	if err := h.storage.RemoveExpense(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Expense not found"})
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("failed to delete expense")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete expense"})
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Status: "deleted", ExpenseID: id})
}

// typedItem encodes e with type-tagged attribute containers.
func typedItem(e storage.Expense) map[string]any {
	item := map[string]any{
		"expenseId": map[string]string{"S": e.ID},
		"title":     map[string]string{"S": e.Title},
		"amount":    map[string]string{"N": strconv.FormatFloat(e.Amount, 'f', -1, 64)},
		"date":      map[string]string{"S": e.Date},
		"category":  map[string]string{"S": e.Category},
	}
	if e.ReceiptKey != nil {
		item["receiptKey"] = map[string]string{"S": *e.ReceiptKey}
	}
	return item
}
