package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tanq16/expensesync/internal/storage"
)

const (
	fixtureUploadBase   = "https://example.com/mock-upload/"
	fixtureDownloadBase = "https://example.com/mock-download/"
)

// Fixture implements Backend over a storage.Store, standing in for the live
// backend when no API base is configured.
type Fixture struct {
	store  storage.Store
	now    func() time.Time
	logger zerolog.Logger
}

// NewFixture returns a fixture backend over store.
func NewFixture(store storage.Store, logger zerolog.Logger) *Fixture {
	return &Fixture{store: store, now: time.Now, logger: logger}
}

func (f *Fixture) ListExpenses(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "list expenses", Err: err}
	}
	expenses, err := f.store.GetAllExpenses()
	if err != nil {
		return nil, &TransportError{Op: "list expenses", Err: err}
	}
	return json.Marshal(expenses)
}

// CreateExpense assigns a mock-prefixed id and defaults the date to today.
func (f *Fixture) CreateExpense(ctx context.Context, draft storage.Draft) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "create expense", Err: err}
	}
	if err := draft.Validate(); err != nil {
		return nil, &ProtocolError{Op: "create expense", Status: http.StatusBadRequest, Body: err.Error()}
	}
	date := draft.Date
	if date == "" {
		date = f.now().Format(time.DateOnly)
	}
	expense, err := f.store.AddExpense(storage.Expense{
		ID:       "mock-" + shortID(),
		Title:    draft.Title,
		Amount:   draft.Amount,
		Date:     date,
		Category: draft.Category,
	})
	if err != nil {
		return nil, &TransportError{Op: "create expense", Err: err}
	}
	f.logger.Debug().Str("id", expense.ID).Msg("fixture expense created")
	return json.Marshal(map[string]string{"expenseId": expense.ID})
}

func (f *Fixture) PresignPost(ctx context.Context, expenseID string) (Presign, error) {
	return f.presign(ctx, "presign POST", expenseID)
}

func (f *Fixture) PresignGet(ctx context.Context, expenseID string) (Presign, error) {
	return f.presign(ctx, "presign GET", expenseID)
}

func (f *Fixture) presign(ctx context.Context, op, expenseID string) (Presign, error) {
	if err := ctx.Err(); err != nil {
		return Presign{}, &TransportError{Op: op, Err: err}
	}
	if expenseID == "" {
		return Presign{}, &ProtocolError{Op: op, Status: http.StatusBadRequest, Body: "missing expenseId"}
	}
	receiptID := expenseID + "-receipt"
	return Presign{
		UploadURL: fixtureUploadBase + url.PathEscape(expenseID) + "/" + url.PathEscape(receiptID),
		ReceiptID: receiptID,
	}, nil
}

// Upload stores the body and associates it with the expense named in the
// upload URL, the way the live backend does after an object lands.
func (f *Fixture) Upload(ctx context.Context, uploadURL string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	rest, ok := strings.CutPrefix(uploadURL, fixtureUploadBase)
	if !ok {
		return &ProtocolError{Op: "upload", Status: http.StatusForbidden, Body: "unknown upload destination"}
	}
	expenseID, receiptID, ok := strings.Cut(rest, "/")
	if !ok {
		return &ProtocolError{Op: "upload", Status: http.StatusBadRequest, Body: "malformed upload destination"}
	}
	expenseID, _ = url.PathUnescape(expenseID)
	receiptID, _ = url.PathUnescape(receiptID)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := f.store.PutReceipt(storage.Receipt{Key: receiptID, ContentType: contentType, Data: body, CreatedAt: f.now()}); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	if err := f.store.AttachReceipt(expenseID, receiptID); err != nil {
		f.logger.Warn().Err(err).Str("expenseId", expenseID).Msg("uploaded receipt has no matching expense")
	}
	return nil
}

func (f *Fixture) DeleteExpense(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "delete expense", Err: err}
	}
	if err := f.store.RemoveExpense(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ProtocolError{Op: "delete expense", Status: http.StatusNotFound, Body: err.Error()}
		}
		return &TransportError{Op: "delete expense", Err: err}
	}
	return nil
}

func (f *Fixture) ResolveReceipt(ctx context.Context, receiptKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Op: "resolve receipt", Err: err}
	}
	if _, err := f.store.GetReceipt(receiptKey); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", &ProtocolError{Op: "resolve receipt", Status: http.StatusNotFound, Body: err.Error()}
		}
		return "", &TransportError{Op: "resolve receipt", Err: err}
	}
	return fixtureDownloadBase + url.PathEscape(receiptKey), nil
}

// shortID returns seven random hex characters.
func shortID() string {
	return fmt.Sprintf("%.7s", strings.ReplaceAll(uuid.NewString(), "-", ""))
}
