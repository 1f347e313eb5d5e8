// Package client talks to the expense backend.
//
// Backend is implemented twice: HTTPClient for a live deployment and Fixture
// for the in-process fixture mode. Both report failures with the error types
// in errors.go.
package client

import (
	"context"

	"github.com/tanq16/expensesync/internal/storage"
)

// Backend is the set of remote operations the controllers depend on.
type Backend interface {
	// ListExpenses returns the raw list response body.
	ListExpenses(ctx context.Context) ([]byte, error)
	// CreateExpense returns the raw create response body.
	CreateExpense(ctx context.Context, draft storage.Draft) ([]byte, error)
	PresignPost(ctx context.Context, expenseID string) (Presign, error)
	PresignGet(ctx context.Context, expenseID string) (Presign, error)
	// Upload PUTs body to uploadURL. An empty contentType omits the header.
	Upload(ctx context.Context, uploadURL string, body []byte, contentType string) error
	DeleteExpense(ctx context.Context, id string) error
	// ResolveReceipt returns a URL the receipt can be opened at.
	ResolveReceipt(ctx context.Context, receiptKey string) (string, error)
}

// Presign is the upload destination issued for an expense.
type Presign struct {
	UploadURL string `json:"uploadUrl"`
	ReceiptID string `json:"receiptId"`
}

// Download is the resolve-receipt response.
type Download struct {
	DownloadURL string `json:"downloadUrl"`
}
