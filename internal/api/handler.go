// Package api serves the expense backend endpoints over a storage.Store.
//
// It backs `expensesync serve` for local development and gives the client
// tests a real HTTP peer.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanq16/expensesync/internal/storage"
)

// Shape selects the wire shape of the list response.
type Shape string

const (
	ShapeArray    Shape = "array"
	ShapeItems    Shape = "items"
	ShapeExpenses Shape = "expenses"
	// ShapeTyped wraps every attribute in a type-tagged container under Items.
	ShapeTyped Shape = "typed"
)

// ParseShape validates a shape name. Empty selects ShapeArray.
func ParseShape(s string) (Shape, bool) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShapeArray:
		return ShapeArray, true
	case ShapeItems:
		return ShapeItems, true
	case ShapeExpenses:
		return ShapeExpenses, true
	case ShapeTyped:
		return ShapeTyped, true
	default:
		return "", false
	}
}

// Options tune how the handler emulates a deployment.
type Options struct {
	Shape Shape
	// PresignGetOnly rejects POST /receipts/presign with 405.
	PresignGetOnly bool
	// MaxUploadBytes caps PUT bodies; zero uses 10 MiB.
	MaxUploadBytes int64
}

type Handler struct {
	storage storage.Store
	opts    Options
	logger  zerolog.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHandler(store storage.Store, opts Options, logger zerolog.Logger) *Handler {
	if opts.Shape == "" {
		opts.Shape = ShapeArray
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{storage: store, opts: opts, logger: logger}
}

// Routes registers every endpoint on a new mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/expenses", h.Expenses)
	mux.HandleFunc("/expenses/", h.DeleteExpense)
	mux.HandleFunc("/receipts/presign", h.Presign)
	mux.HandleFunc("/receipts/", h.GetReceipt)
	mux.HandleFunc("/uploads/", h.Upload)
	mux.HandleFunc("/download", h.Download)
	return h.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Str("ip", readClientIP(r)).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// publicBase is the externally visible origin of the request.
func publicBase(r *http.Request) string {
	scheme := "http"
	if isSecureRequest(r) {
		scheme = "https"
	}
	host := r.Host
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func readClientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
