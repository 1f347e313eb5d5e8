package storage

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore implements the Storage interface in process memory.
type memoryStore struct {
	mu       sync.RWMutex
	expenses []Expense
	receipts map[string]Receipt
}

// NewMemoryStore returns an in-memory store seeded with the given expenses.
func NewMemoryStore(seed []Expense) Store {
	s := &memoryStore{receipts: make(map[string]Receipt)}
	for _, e := range seed {
		s.expenses = append(s.expenses, cloneExpense(e))
	}
	return s
}

func (s *memoryStore) Close() error {
	return nil
}

func (s *memoryStore) GetAllExpenses() ([]Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expenses := make([]Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		expenses = append(expenses, cloneExpense(e))
	}
	return expenses, nil
}

func (s *memoryStore) GetExpense(id string) (Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Expense{}, fmt.Errorf("expense with ID %s: %w", id, ErrNotFound)
	}
	return cloneExpense(s.expenses[idx]), nil
}

// AddExpense prepends the expense, newest first.
func (s *memoryStore) AddExpense(expense Expense) (Expense, error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if err := expense.Validate(); err != nil {
		return Expense{}, err
	}
	expense.Amount = roundAmount(expense.Amount)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(expense.ID) >= 0 {
		return Expense{}, fmt.Errorf("expense with ID %s already exists", expense.ID)
	}
	s.expenses = slices.Insert(s.expenses, 0, cloneExpense(expense))
	return cloneExpense(expense), nil
}

func (s *memoryStore) RemoveExpense(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("expense with ID %s: %w", id, ErrNotFound)
	}
	s.expenses = slices.Delete(s.expenses, idx, idx+1)
	return nil
}

func (s *memoryStore) AddMultipleExpenses(expenses []Expense) error {
	for _, exp := range expenses {
		if _, err := s.AddExpense(exp); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) RemoveMultipleExpenses(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = slices.DeleteFunc(s.expenses, func(e Expense) bool {
		return slices.Contains(ids, e.ID)
	})
	return nil
}

func (s *memoryStore) PutReceipt(receipt Receipt) error {
	if receipt.Key == "" {
		return fmt.Errorf("receipt 'key' cannot be empty")
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}
	receipt.Data = slices.Clone(receipt.Data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[receipt.Key] = receipt
	return nil
}

func (s *memoryStore) GetReceipt(key string) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipt, ok := s.receipts[key]
	if !ok {
		return Receipt{}, fmt.Errorf("receipt %s: %w", key, ErrNotFound)
	}
	receipt.Data = slices.Clone(receipt.Data)
	return receipt, nil
}

func (s *memoryStore) AttachReceipt(expenseID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(expenseID)
	if idx < 0 {
		return fmt.Errorf("expense with ID %s: %w", expenseID, ErrNotFound)
	}
	s.expenses[idx].ReceiptKey = StringPtr(key)
	return nil
}

func (s *memoryStore) indexOf(id string) int {
	return slices.IndexFunc(s.expenses, func(e Expense) bool { return e.ID == id })
}

func cloneExpense(e Expense) Expense {
	if e.ReceiptKey != nil {
		key := *e.ReceiptKey
		e.ReceiptKey = &key
	}
	return e
}
