package controller

import (
	"context"
	"fmt"

	"github.com/tanq16/expensesync/internal/client"
	"github.com/tanq16/expensesync/internal/normalize"
	"github.com/tanq16/expensesync/internal/storage"
)

const mockInfo = "MOCK mode: no backend configured. Set API_BASE to use the real API."

// Sync refreshes the shared collection from the backend.
type Sync struct {
	backend  client.Backend
	fixtures storage.Store
	state    *State
	opts     options
}

// NewSync returns a Sync. fixtures supplies the degraded-mode dataset; when
// nil the built-in fixtures are used.
func NewSync(backend client.Backend, fixtures storage.Store, state *State, opts ...Option) *Sync {
	return &Sync{backend: backend, fixtures: fixtures, state: state, opts: buildOptions(opts)}
}

// Refresh replaces the collection with the backend's list. It never fails:
// on any error the collection is replaced with the fixture dataset and the
// error message says so. The result is returned even when a newer refresh
// has superseded this one and the collection was left alone.
func (s *Sync) Refresh(ctx context.Context) []storage.Expense {
	done := s.state.StartLoading()
	defer done()

	gen := s.state.Begin()
	logger := s.opts.logger.With().Uint64("generation", gen).Logger()
	logger.Debug().Msg("refreshing expenses")

	expenses, err := s.fetch(ctx)
	if err != nil {
		fallback := s.fallback()
		if s.state.Replace(gen, fallback) {
			s.state.SetError(fmt.Sprintf("Failed to fetch expenses: %v. Falling back to fixture data.", err))
			s.state.SetInfo("")
		}
		logger.Warn().Err(err).Int("fallback", len(fallback)).Msg("refresh failed, using fixture data")
		return fallback
	}

	if !s.state.Replace(gen, expenses) {
		logger.Debug().Msg("discarding superseded refresh")
		return expenses
	}
	s.state.ClearMessages()
	if s.opts.mock {
		s.state.SetInfo(mockInfo)
	}
	logger.Info().Int("count", len(expenses)).Msg("expenses refreshed")
	return expenses
}

func (s *Sync) fetch(ctx context.Context) ([]storage.Expense, error) {
	body, err := s.backend.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	raws, err := normalize.DecodeEnvelope(body)
	if err != nil {
		return nil, &client.DataError{Op: "list expenses", Msg: err.Error()}
	}
	return normalize.NormalizeAll(raws), nil
}

// fallback reads the fixture repository, passing it through normalization
// like live data.
func (s *Sync) fallback() []storage.Expense {
	source := storage.Fixtures()
	if s.fixtures != nil {
		stored, err := s.fixtures.GetAllExpenses()
		switch {
		case err != nil:
			s.opts.logger.Error().Err(err).Msg("fixture repository unavailable, using built-in fixtures")
		case len(stored) > 0:
			source = stored
		}
	}
	return normalize.NormalizeAll(normalize.ToRawAll(source))
}
