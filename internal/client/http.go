package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tanq16/expensesync/internal/storage"
)

const (
	defaultTimeout = 30 * time.Second
	// error bodies are truncated to keep messages readable
	maxErrorBody = 2048
)

// HTTPClient implements Backend against a live REST deployment.
type HTTPClient struct {
	base   string
	http   *http.Client
	logger zerolog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithTimeout sets the per-request timeout. A client passed through
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		if d > 0 {
			c := *h.http
			c.Timeout = d
			h.http = &c
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(h *HTTPClient) { h.logger = l }
}

// NewHTTPClient returns a client for the backend rooted at base.
func NewHTTPClient(base string, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPClient) ListExpenses(ctx context.Context) ([]byte, error) {
	return h.do(ctx, "list expenses", http.MethodGet, h.base+"/expenses", nil, "")
}

func (h *HTTPClient) CreateExpense(ctx context.Context, draft storage.Draft) ([]byte, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("encode expense: %w", err)
	}
	return h.do(ctx, "create expense", http.MethodPost, h.base+"/expenses", payload, "application/json")
}

func (h *HTTPClient) PresignPost(ctx context.Context, expenseID string) (Presign, error) {
	payload, err := json.Marshal(map[string]string{"expenseId": expenseID})
	if err != nil {
		return Presign{}, fmt.Errorf("encode presign request: %w", err)
	}
	body, err := h.do(ctx, "presign POST", http.MethodPost, h.base+"/receipts/presign", payload, "application/json")
	if err != nil {
		return Presign{}, err
	}
	return decodePresign("presign POST", body)
}

func (h *HTTPClient) PresignGet(ctx context.Context, expenseID string) (Presign, error) {
	u := h.base + "/receipts/presign?expenseId=" + url.QueryEscape(expenseID)
	body, err := h.do(ctx, "presign GET", http.MethodGet, u, nil, "")
	if err != nil {
		return Presign{}, err
	}
	return decodePresign("presign GET", body)
}

func (h *HTTPClient) Upload(ctx context.Context, uploadURL string, body []byte, contentType string) error {
	if body == nil {
		body = []byte{}
	}
	_, err := h.do(ctx, "upload", http.MethodPut, uploadURL, body, contentType)
	return err
}

func (h *HTTPClient) DeleteExpense(ctx context.Context, id string) error {
	_, err := h.do(ctx, "delete expense", http.MethodDelete, h.base+"/expenses/"+url.PathEscape(id), nil, "")
	return err
}

func (h *HTTPClient) ResolveReceipt(ctx context.Context, receiptKey string) (string, error) {
	u := h.base + "/download?receiptKey=" + url.QueryEscape(receiptKey)
	body, err := h.do(ctx, "resolve receipt", http.MethodGet, u, nil, "")
	if err != nil {
		return "", err
	}
	var download Download
	if err := json.Unmarshal(body, &download); err != nil {
		return "", &DataError{Op: "resolve receipt", Msg: fmt.Sprintf("invalid response: %v", err)}
	}
	if download.DownloadURL == "" {
		return "", &DataError{Op: "resolve receipt", Msg: "response missing downloadUrl"}
	}
	return download.DownloadURL, nil
}

// do issues one request. A nil body sends no payload; an empty contentType
// sends no Content-Type header.
func (h *HTTPClient) do(ctx context.Context, op, method, target string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := h.http.Do(req)
	if err != nil {
		h.logger.Debug().Str("op", op).Str("method", method).Str("url", target).Err(err).Msg("request failed")
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	h.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProtocolError{Op: op, Status: resp.StatusCode, Body: truncateBody(respBody, maxErrorBody)}
	}
	return respBody, nil
}

// truncateBody cuts body to at most limit bytes without splitting a rune.
func truncateBody(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}

func decodePresign(op string, body []byte) (Presign, error) {
	var presign Presign
	if err := json.Unmarshal(body, &presign); err != nil {
		return Presign{}, &DataError{Op: op, Msg: fmt.Sprintf("invalid response: %v", err)}
	}
	return presign, nil
}
