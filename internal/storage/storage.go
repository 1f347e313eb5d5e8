package storage

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when an expense or receipt does not exist.
var ErrNotFound = errors.New("not found")

// Store is the repository behind fixture mode and the degraded fallback.
type Store interface {
	Close() error

	// Expenses
	GetAllExpenses() ([]Expense, error)
	GetExpense(id string) (Expense, error)
	AddExpense(expense Expense) (Expense, error)
	RemoveExpense(id string) error
	AddMultipleExpenses(expenses []Expense) error
	RemoveMultipleExpenses(ids []string) error

	// Receipts
	PutReceipt(receipt Receipt) error
	GetReceipt(key string) (Receipt, error)
	AttachReceipt(expenseID, key string) error
}

// canonical expense record
type Expense struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	Category   string  `json:"category"`
	ReceiptKey *string `json:"receiptKey"`
}

// Draft is the create payload sent to the backend.
type Draft struct {
	Title    string  `json:"title"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
}

// Receipt is a stored attachment.
type Receipt struct {
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

type BackendType string

const (
	BackendTypeMemory   BackendType = "memory"
	BackendTypePostgres BackendType = "postgres"
)

// config for the storage backend
type SystemConfig struct {
	StorageURL  string      `yaml:"url"`
	StorageType BackendType `yaml:"type"`
	StorageUser string      `yaml:"user"`
	StoragePass string      `yaml:"pass"`
	StorageSSL  string      `yaml:"ssl"`
}

// SetStorageConfig overrides fields with any STORAGE_* environment variables that are set.
func (c *SystemConfig) SetStorageConfig() {
	if env := os.Getenv("STORAGE_TYPE"); env != "" {
		c.StorageType = backendTypeFromEnv(env)
	}
	if env := os.Getenv("STORAGE_URL"); env != "" {
		c.StorageURL = env
	}
	if env := os.Getenv("STORAGE_SSL"); env != "" {
		c.StorageSSL = env
	}
	if env := os.Getenv("STORAGE_USER"); env != "" {
		c.StorageUser = env
	}
	if env := os.Getenv("STORAGE_PASS"); env != "" {
		c.StoragePass = env
	}
	if c.StorageType == "" {
		c.StorageType = BackendTypeMemory
	}
	c.StorageSSL = backendSSLFromEnv(c.StorageSSL)
}

func backendTypeFromEnv(env string) BackendType {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "memory":
		return BackendTypeMemory
	case "postgres":
		return BackendTypePostgres
	default:
		return BackendType(env)
	}
}

func backendSSLFromEnv(env string) string {
	switch env {
	case "disable", "require", "verify-full", "verify-ca":
		return env
	default:
		return "disable"
	}
}

// InitializeStorage opens the configured store and seeds it with the fixture dataset when empty.
func InitializeStorage(baseConfig SystemConfig) (Store, error) {
	switch baseConfig.StorageType {
	case "", BackendTypeMemory:
		return NewMemoryStore(Fixtures()), nil
	case BackendTypePostgres:
		if baseConfig.StorageURL == "" {
			return nil, fmt.Errorf("missing STORAGE_URL for postgres backend")
		}
		if baseConfig.StorageUser == "" {
			return nil, fmt.Errorf("missing STORAGE_USER for postgres backend")
		}
		if baseConfig.StoragePass == "" {
			return nil, fmt.Errorf("missing STORAGE_PASS for postgres backend")
		}
		return InitializePostgresStore(baseConfig)
	default:
		return nil, fmt.Errorf("unsupported storage type: %q (set STORAGE_TYPE=memory or STORAGE_TYPE=postgres)", baseConfig.StorageType)
	}
}

var REInvalidChars *regexp.Regexp = regexp.MustCompile(`[^\p{L}\p{N}\s.,\-'_!"]`)
var RERepeatingSpaces *regexp.Regexp = regexp.MustCompile(`\s+`)

// allows readable chars like unicode, otherwise replaces with whitespace
func SanitizeString(s string) string {
	sanitized := REInvalidChars.ReplaceAllString(s, " ")
	sanitized = RERepeatingSpaces.ReplaceAllString(sanitized, " ")
	return strings.TrimSpace(sanitized)
}

// Validate checks an expense before it is written to a store.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("expense 'id' cannot be empty")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("expense 'title' cannot be empty")
	}
	if e.ReceiptKey != nil && *e.ReceiptKey == "" {
		e.ReceiptKey = nil
	}
	return nil
}

// Validate checks a create payload received by the fixture backend.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return fmt.Errorf("expense 'title' cannot be empty")
	}
	if !(d.Amount > 0) {
		return fmt.Errorf("expense 'amount' must be greater than 0")
	}
	d.Category = SanitizeString(d.Category)
	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Fixtures returns the built-in dataset used in fixture mode and as the degraded fallback.
func Fixtures() []Expense {
	return []Expense{
		{ID: "mock-1", Title: "Coffee", Amount: 120, Date: "2025-08-28", Category: "Food"},
		{ID: "mock-2", Title: "Books", Amount: 599, Date: "2025-08-22", Category: "Education", ReceiptKey: StringPtr("mock-2-receipt.jpg")},
	}
}
