package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tanq16/expensesync/internal/storage"
)

type presignPayload struct {
	ExpenseID string `json:"expenseId"`
	FileName  string `json:"fileName"`
}

type presignResponse struct {
	UploadURL string `json:"uploadUrl"`
	ReceiptID string `json:"receiptId"`
}

type downloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// Presign issues an upload destination for an existing expense. It accepts
// POST with a JSON body or GET with an expenseId query parameter.
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	var payload presignPayload
	switch r.Method {
	case http.MethodPost:
		if h.opts.PresignGetOnly {
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}
	case http.MethodGet:
		payload.ExpenseID = r.URL.Query().Get("expenseId")
		payload.FileName = r.URL.Query().Get("fileName")
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}
	payload.ExpenseID = strings.TrimSpace(payload.ExpenseID)
	if payload.ExpenseID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing expenseId"})
		return
	}
	if _, err := h.storage.GetExpense(payload.ExpenseID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Expense not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to check expense"})
		return
	}
	receiptID, err := newReceiptID(payload.ExpenseID, payload.FileName)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate receipt id"})
		return
	}
	writeJSON(w, http.StatusOK, presignResponse{
		UploadURL: publicBase(r) + "/uploads/" + url.PathEscape(payload.ExpenseID) + "/" + url.PathEscape(receiptID),
		ReceiptID: receiptID,
	})
}

// Upload accepts the raw receipt bytes for /uploads/{expenseId}/{receiptId}
// and associates the receipt with the expense.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/uploads/")
	expenseID, receiptID, ok := strings.Cut(rest, "/")
	if !ok || expenseID == "" || receiptID == "" || strings.Contains(receiptID, "/") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid upload path"})
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Upload too large"})
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	receipt := storage.Receipt{Key: receiptID, ContentType: contentType, Data: data, CreatedAt: time.Now()}
	if err := h.storage.PutReceipt(receipt); err != nil {
		h.logger.Error().Err(err).Str("receipt", receiptID).Msg("failed to store receipt")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to store receipt"})
		return
	}
	if err := h.storage.AttachReceipt(expenseID, receiptID); err != nil {
		// the object is kept, as a storage bucket would
		h.logger.Warn().Err(err).Str("expenseId", expenseID).Str("receipt", receiptID).Msg("receipt stored without expense association")
	}
	w.Header().Set("ETag", receiptETag(data))
	w.WriteHeader(http.StatusOK)
}

// Download resolves a receipt key to a URL serving the stored bytes.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}
	key := strings.TrimSpace(r.URL.Query().Get("receiptKey"))
	if key == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing receiptKey"})
		return
	}
	if _, err := h.storage.GetReceipt(key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Receipt not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to resolve receipt"})
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{DownloadURL: publicBase(r) + "/receipts/" + url.PathEscape(key)})
}

// GetReceipt serves the bytes stored under /receipts/{key}.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/receipts/")
	receipt, err := h.storage.GetReceipt(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Receipt not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to read receipt"})
		return
	}
	w.Header().Set("Content-Type", receipt.ContentType)
	w.Header().Set("ETag", receiptETag(receipt.Data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(receipt.Data)
}
