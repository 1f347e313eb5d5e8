package controller

import (
	"context"
	"net/url"
	"strings"

	"github.com/tanq16/expensesync/internal/client"
)

// Receipts resolves stored receipt keys to openable URLs.
type Receipts struct {
	backend     client.Backend
	storageBase string
	state       *State
	opts        options
}

// NewReceipts returns a resolver falling back to direct URLs under storageBase.
func NewReceipts(backend client.Backend, storageBase string, state *State, opts ...Option) *Receipts {
	return &Receipts{backend: backend, storageBase: storageBase, state: state, opts: buildOptions(opts)}
}

// Resolve returns a URL for key, reporting false only for an empty key.
// When the backend cannot resolve the key the direct storage URL is
// returned; the bucket may still deny access to it.
func (r *Receipts) Resolve(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	done := r.state.StartLoading()
	defer done()

	resolved, err := r.backend.ResolveReceipt(ctx, key)
	if err == nil && resolved != "" {
		return resolved, true
	}
	direct := ReceiptURL(r.storageBase, key)
	r.opts.logger.Warn().Err(err).Str("receiptKey", key).Str("url", direct).Msg("receipt resolve failed, using direct storage URL")
	return direct, true
}

// ReceiptURL joins a storage base and an object key, escaping each path
// segment of the key.
func ReceiptURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
