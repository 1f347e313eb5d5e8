// Package selftest runs a quick end-to-end check of the configured backend.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanq16/expensesync/internal/client"
	"github.com/tanq16/expensesync/internal/controller"
	"github.com/tanq16/expensesync/internal/normalize"
	"github.com/tanq16/expensesync/internal/storage"
)

// Result is the outcome of one check.
type Result struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Note string `json:"note"`
}

// Harness runs the checks against a sync controller and its backend.
type Harness struct {
	sync    *controller.Sync
	backend client.Backend
	mock    bool
	now     func() time.Time
	logger  zerolog.Logger
}

// New returns a Harness. mock selects the fixture-mode create check.
func New(sync *controller.Sync, backend client.Backend, mock bool, logger zerolog.Logger) *Harness {
	return &Harness{sync: sync, backend: backend, mock: mock, now: time.Now, logger: logger}
}

// Run executes the checks in order. An unexpected error or panic ends the
// run with a failing selfTestError entry after the results gathered so far.
func (h *Harness) Run(ctx context.Context) (results []Result) {
	h.logger.Info().Bool("mock", h.mock).Msg("running self-tests")
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Msg("self-test panicked")
			results = append(results, Result{Name: "selfTestError", Note: fmt.Sprint(r)})
		}
	}()

	list := h.sync.Refresh(ctx)
	results = append(results, Result{
		Name: "fetchExpenses",
		OK:   list != nil,
		Note: fmt.Sprintf("loaded %d items", len(list)),
	})

	var res Result
	var err error
	if h.mock {
		res, err = h.createMock(ctx)
	} else {
		res = h.createLive(ctx)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("self-test failed")
		return append(results, Result{Name: "selfTestError", Note: err.Error()})
	}
	return append(results, res)
}

func (h *Harness) draft() storage.Draft {
	return storage.Draft{Title: "SelfTest", Amount: 5, Date: h.now().Format(time.DateOnly), Category: "test"}
}

// createMock creates through the fixture backend and checks the new record
// shows up after a refresh.
func (h *Harness) createMock(ctx context.Context) (Result, error) {
	body, err := h.backend.CreateExpense(ctx, h.draft())
	if err != nil {
		return Result{}, err
	}
	id, _ := normalize.CreatedID(body)
	list := h.sync.Refresh(ctx)
	found := id != "" && slices.ContainsFunc(list, func(e storage.Expense) bool { return e.ID == id })
	return Result{Name: "createExpense (mock)", OK: found, Note: "created " + id}, nil
}

// createLive issues a real create; any failure is reported in the result.
func (h *Harness) createLive(ctx context.Context) Result {
	res := Result{Name: "createExpense (real API)"}
	_, err := h.backend.CreateExpense(ctx, h.draft())
	var perr *client.ProtocolError
	switch {
	case err == nil:
		res.OK = true
		res.Note = "created successfully"
	case errors.As(err, &perr):
		res.Note = fmt.Sprintf("failed: %d", perr.Status)
	default:
		res.Note = "error: " + err.Error()
	}
	return res
}
