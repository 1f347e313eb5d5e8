package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanq16/expensesync/internal/client"
)

const deletePrompt = "Are you sure you want to delete this expense?"

// ErrNotConfirmed is returned when the user declines a deletion.
var ErrNotConfirmed = errors.New("deletion not confirmed")

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Delete removes expenses after the backend confirms.
type Delete struct {
	backend client.Backend
	confirm Confirmer
	state   *State
	opts    options
}

func NewDelete(backend client.Backend, confirm Confirmer, state *State, opts ...Option) *Delete {
	return &Delete{backend: backend, confirm: confirm, state: state, opts: buildOptions(opts)}
}

// Delete asks for confirmation, deletes id on the backend, and only then
// drops it from the collection. On failure the collection is unchanged.
func (d *Delete) Delete(ctx context.Context, id string) error {
	if d.confirm == nil || !d.confirm.Confirm(ctx, deletePrompt) {
		return ErrNotConfirmed
	}

	done := d.state.StartLoading()
	defer done()

	logger := d.opts.logger.With().Str("id", id).Logger()
	if err := d.backend.DeleteExpense(ctx, id); err != nil {
		logger.Error().Err(err).Msg("delete failed")
		d.state.SetError(fmt.Sprintf("Error deleting expense: %v", err))
		return err
	}
	d.state.Remove(id)
	d.state.SetInfo("Expense deleted successfully.")
	logger.Info().Msg("expense deleted")
	return nil
}
