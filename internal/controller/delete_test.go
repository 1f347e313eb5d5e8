package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/expensesync/internal/storage"
)

func seeded() *State {
	state := NewState()
	state.Replace(state.Begin(), storage.Fixtures())
	return state
}

func confirmWith(answer bool, prompts *[]string) Confirmer {
	return ConfirmFunc(func(ctx context.Context, prompt string) bool {
		if prompts != nil {
			*prompts = append(*prompts, prompt)
		}
		return answer
	})
}

func TestDelete_Confirmed(t *testing.T) {
	backend := &fakeBackend{}
	state := seeded()
	var prompts []string

	err := NewDelete(backend, confirmWith(true, &prompts), state).Delete(context.Background(), "mock-1")
	require.NoError(t, err)

	assert.Equal(t, []string{deletePrompt}, prompts)
	assert.Equal(t, []string{"delete"}, backend.calls)
	require.Len(t, state.Expenses(), 1)
	assert.Equal(t, "mock-2", state.Expenses()[0].ID)
	assert.Equal(t, "Expense deleted successfully.", state.Info())
	assert.False(t, state.Loading())
}

func TestDelete_Declined(t *testing.T) {
	backend := &fakeBackend{}
	state := seeded()

	err := NewDelete(backend, confirmWith(false, nil), state).Delete(context.Background(), "mock-1")
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, backend.calls)
	assert.Len(t, state.Expenses(), 2)

	err = NewDelete(backend, nil, state).Delete(context.Background(), "mock-1")
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, backend.calls)
}

func TestDelete_BackendFailureKeepsCollection(t *testing.T) {
	for name, backendErr := range map[string]error{
		"protocol":  protocolErr("delete expense", 404, "not found"),
		"transport": errNetwork,
	} {
		t.Run(name, func(t *testing.T) {
			backend := &fakeBackend{deleteErr: backendErr}
			state := seeded()

			err := NewDelete(backend, confirmWith(true, nil), state).Delete(context.Background(), "mock-1")
			assert.ErrorIs(t, err, backendErr)
			assert.Equal(t, storage.Fixtures(), state.Expenses())
			assert.Contains(t, state.Error(), "Error deleting expense: ")
			assert.Contains(t, state.Error(), backendErr.Error())
			assert.False(t, state.Loading())
		})
	}
}

func TestDelete_UnknownLocalID(t *testing.T) {
	state := seeded()
	err := NewDelete(&fakeBackend{}, confirmWith(true, nil), state).Delete(context.Background(), "elsewhere")
	require.NoError(t, err)
	assert.Len(t, state.Expenses(), 2)
}
