package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// databaseStore implements the Storage interface for PostgreSQL.
type databaseStore struct {
	db *sql.DB
}

// SQL queries as constants for reusability and clarity.
const (
	createExpensesTableSQL = `
	CREATE TABLE IF NOT EXISTS expenses (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
		date VARCHAR(32) NOT NULL DEFAULT '',
		category VARCHAR(255) NOT NULL DEFAULT '',
		receipt_key TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	createReceiptsTableSQL = `
	CREATE TABLE IF NOT EXISTS receipts (
		key TEXT PRIMARY KEY,
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		data BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`
)

func InitializePostgresStore(baseConfig SystemConfig) (Store, error) {
	dbURL := makeDBURL(baseConfig)
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	log.Info().Str("host", baseConfig.StorageURL).Msg("connected to PostgreSQL database")

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create database tables: %w", err)
	}
	store := &databaseStore{db: db}
	if err := store.ensureFixtures(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed fixture data: %w", err)
	}
	return store, nil
}

func makeDBURL(baseConfig SystemConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s?sslmode=%s", baseConfig.StorageUser, baseConfig.StoragePass, baseConfig.StorageURL, baseConfig.StorageSSL)
}

func createTables(db *sql.DB) error {
	for _, query := range []string{
		createExpensesTableSQL,
		createReceiptsTableSQL,
	} {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS expenses_created_idx ON expenses (created_at DESC)`); err != nil {
		return err
	}
	return nil
}

// ensureFixtures seeds the built-in dataset into an empty expenses table.
func (s *databaseStore) ensureFixtures() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM expenses`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	fixtures := Fixtures()
	// insert oldest first so created_at ordering matches the fixture order
	slices.Reverse(fixtures)
	if err := s.AddMultipleExpenses(fixtures); err != nil {
		return err
	}
	log.Info().Int("count", len(fixtures)).Msg("seeded fixture expenses")
	return nil
}

func (s *databaseStore) Close() error {
	return s.db.Close()
}

func scanExpense(scanner interface{ Scan(...any) error }) (Expense, error) {
	var expense Expense
	var amount decimal.Decimal
	var receiptKey sql.NullString
	err := scanner.Scan(
		&expense.ID,
		&expense.Title,
		&amount,
		&expense.Date,
		&expense.Category,
		&receiptKey,
	)
	if err != nil {
		return Expense{}, err
	}
	expense.Amount = amount.InexactFloat64()
	if receiptKey.Valid {
		expense.ReceiptKey = StringPtr(receiptKey.String)
	}
	return expense, nil
}

func (s *databaseStore) GetAllExpenses() ([]Expense, error) {
	query := `SELECT id, title, amount, date, category, receipt_key FROM expenses ORDER BY created_at DESC, id`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

func (s *databaseStore) GetExpense(id string) (Expense, error) {
	query := `SELECT id, title, amount, date, category, receipt_key FROM expenses WHERE id = $1`
	expense, err := scanExpense(s.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Expense{}, fmt.Errorf("expense with ID %s: %w", id, ErrNotFound)
		}
		return Expense{}, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

func (s *databaseStore) AddExpense(expense Expense) (Expense, error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if err := expense.Validate(); err != nil {
		return Expense{}, err
	}
	expense.Amount = roundAmount(expense.Amount)
	var receiptKey sql.NullString
	if expense.ReceiptKey != nil {
		receiptKey = sql.NullString{String: *expense.ReceiptKey, Valid: true}
	}
	query := `
		INSERT INTO expenses (id, title, amount, date, category, receipt_key)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	amount := decimal.NewFromFloat(expense.Amount)
	if _, err := s.db.Exec(query, expense.ID, expense.Title, amount, expense.Date, expense.Category, receiptKey); err != nil {
		return Expense{}, fmt.Errorf("failed to insert expense: %w", err)
	}
	return expense, nil
}

func (s *databaseStore) RemoveExpense(id string) error {
	query := `DELETE FROM expenses WHERE id = $1`
	result, err := s.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("expense with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *databaseStore) AddMultipleExpenses(expenses []Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	// use the same addexpense method
	for _, exp := range expenses {
		if _, err := s.AddExpense(exp); err != nil {
			return err
		}
	}
	return nil
}

func (s *databaseStore) RemoveMultipleExpenses(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM expenses WHERE id = ANY($1)`
	_, err := s.db.Exec(query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to delete multiple expenses: %w", err)
	}
	return nil
}

func (s *databaseStore) PutReceipt(receipt Receipt) error {
	if receipt.Key == "" {
		return fmt.Errorf("receipt 'key' cannot be empty")
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO receipts (key, content_type, data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data
	`
	if _, err := s.db.Exec(query, receipt.Key, receipt.ContentType, receipt.Data, receipt.CreatedAt); err != nil {
		return fmt.Errorf("failed to store receipt: %w", err)
	}
	return nil
}

func (s *databaseStore) GetReceipt(key string) (Receipt, error) {
	var receipt Receipt
	query := `SELECT key, content_type, data, created_at FROM receipts WHERE key = $1`
	err := s.db.QueryRow(query, key).Scan(&receipt.Key, &receipt.ContentType, &receipt.Data, &receipt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, fmt.Errorf("receipt %s: %w", key, ErrNotFound)
		}
		return Receipt{}, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

func (s *databaseStore) AttachReceipt(expenseID, key string) error {
	result, err := s.db.Exec(`UPDATE expenses SET receipt_key = $1 WHERE id = $2`, key, expenseID)
	if err != nil {
		return fmt.Errorf("failed to attach receipt: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("expense with ID %s: %w", expenseID, ErrNotFound)
	}
	return nil
}
