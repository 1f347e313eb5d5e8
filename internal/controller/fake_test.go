package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/tanq16/expensesync/internal/client"
	"github.com/tanq16/expensesync/internal/storage"
)

type uploadCall struct {
	URL         string
	Body        []byte
	ContentType string
}

// fakeBackend is a scripted client.Backend that records every call.
type fakeBackend struct {
	mu sync.Mutex

	listBody    []byte
	listErr     error
	createBody  []byte
	createErr   error
	presignPost func() (client.Presign, error)
	presignGet  func() (client.Presign, error)
	uploadErrs  []error
	deleteErr   error
	resolveURL  string
	resolveErr  error

	calls   []string
	uploads []uploadCall
	drafts  []storage.Draft
}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeBackend) ListExpenses(ctx context.Context) ([]byte, error) {
	f.record("list")
	return f.listBody, f.listErr
}

func (f *fakeBackend) CreateExpense(ctx context.Context, draft storage.Draft) ([]byte, error) {
	f.record("create")
	f.mu.Lock()
	f.drafts = append(f.drafts, draft)
	f.mu.Unlock()
	return f.createBody, f.createErr
}

func (f *fakeBackend) PresignPost(ctx context.Context, expenseID string) (client.Presign, error) {
	f.record("presign-post")
	if f.presignPost == nil {
		return client.Presign{}, errors.New("presign POST not scripted")
	}
	return f.presignPost()
}

func (f *fakeBackend) PresignGet(ctx context.Context, expenseID string) (client.Presign, error) {
	f.record("presign-get")
	if f.presignGet == nil {
		return client.Presign{}, errors.New("presign GET not scripted")
	}
	return f.presignGet()
}

func (f *fakeBackend) Upload(ctx context.Context, uploadURL string, body []byte, contentType string) error {
	f.record("upload")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, uploadCall{URL: uploadURL, Body: body, ContentType: contentType})
	if len(f.uploadErrs) == 0 {
		return nil
	}
	err := f.uploadErrs[0]
	f.uploadErrs = f.uploadErrs[1:]
	return err
}

func (f *fakeBackend) DeleteExpense(ctx context.Context, id string) error {
	f.record("delete")
	return f.deleteErr
}

func (f *fakeBackend) ResolveReceipt(ctx context.Context, receiptKey string) (string, error) {
	f.record("resolve")
	return f.resolveURL, f.resolveErr
}

func protocolErr(op string, status int, body string) error {
	return &client.ProtocolError{Op: op, Status: status, Body: body}
}

var errNetwork = &client.TransportError{Op: "request", Err: errors.New("connection refused")}
