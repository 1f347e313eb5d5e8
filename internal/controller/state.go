// Package controller owns the local expense collection and the workflows
// that reconcile it with the backend.
package controller

import (
	"slices"
	"sync"

	"github.com/tanq16/expensesync/internal/storage"
)

// State is the shared collection plus the transient loading, error and info
// indicators read by the UI.
type State struct {
	mu         sync.Mutex
	expenses   []storage.Expense
	loading    int
	errMsg     string
	info       string
	generation uint64
}

// NewState returns an empty State.
func NewState() *State {
	return &State{expenses: []storage.Expense{}}
}

// Begin starts a refresh and returns its generation token.
func (s *State) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Replace swaps in a full collection. It reports false and leaves the
// collection untouched when gen has been superseded by a later Begin.
func (s *State) Replace(gen uint64, expenses []storage.Expense) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.expenses = slices.Clone(expenses)
	if s.expenses == nil {
		s.expenses = []storage.Expense{}
	}
	return true
}

// Remove drops the expense with id and reports whether it was present.
func (s *State) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.expenses)
	s.expenses = slices.DeleteFunc(s.expenses, func(e storage.Expense) bool { return e.ID == id })
	return len(s.expenses) != before
}

// Expenses returns a copy of the collection.
func (s *State) Expenses() []storage.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.expenses)
}

// StartLoading raises the loading indicator until the returned func runs.
// Nested operations keep it raised until the outermost one finishes.
func (s *State) StartLoading() (done func()) {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.loading--
			s.mu.Unlock()
		})
	}
}

func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

func (s *State) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

func (s *State) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *State) SetInfo(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = msg
}

func (s *State) Info() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// ClearMessages resets both the error and info messages.
func (s *State) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.info = ""
}
