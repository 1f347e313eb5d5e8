package controller

import (
	"context"
	"errors"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"github.com/tanq16/expensesync/internal/client"
	"github.com/tanq16/expensesync/internal/normalize"
	"github.com/tanq16/expensesync/internal/storage"
)

// Stage is a step of the create workflow.
type Stage string

const (
	StageValidating Stage = "validating"
	StageCreating   Stage = "creating"
	StagePresigning Stage = "presigning"
	StageUploading  Stage = "uploading"
	StageRefreshing Stage = "refreshing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

const defaultContentType = "application/octet-stream"

// Attachment is a receipt file to upload with a new expense.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// CreateInput is the form submitted by the user.
type CreateInput struct {
	Title    string
	Amount   float64
	Date     string
	Category string
	// Attachment is optional.
	Attachment *Attachment
}

// CreateResult describes a completed workflow.
type CreateResult struct {
	ExpenseID string
	// ReceiptID is set when an attachment was uploaded.
	ReceiptID string
	Stage     Stage
}

// WorkflowError is a failed create workflow, naming the stage that failed.
type WorkflowError struct {
	Stage Stage
	Err   error
}

func (e *WorkflowError) Error() string {
	return e.Err.Error()
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Create runs the create-and-attach workflow.
type Create struct {
	backend client.Backend
	sync    *Sync
	state   *State
	opts    options
}

func NewCreate(backend client.Backend, sync *Sync, state *State, opts ...Option) *Create {
	return &Create{backend: backend, sync: sync, state: state, opts: buildOptions(opts)}
}

// Run validates in, creates the expense, uploads the attachment if any, and
// refreshes the collection. Nothing is inserted locally before the refresh.
// A failure after the create call leaves the server-side record in place.
func (c *Create) Run(ctx context.Context, in CreateInput) (CreateResult, error) {
	c.state.ClearMessages()
	result, err := c.run(ctx, in)
	if err != nil {
		var werr *WorkflowError
		if errors.As(err, &werr) {
			c.opts.logger.Error().Err(werr.Err).Str("stage", string(werr.Stage)).Msg("create workflow failed")
		}
		c.state.SetError(err.Error())
		return CreateResult{Stage: StageFailed}, err
	}
	c.state.SetInfo("Expense saved successfully.")
	return result, nil
}

func (c *Create) run(ctx context.Context, in CreateInput) (CreateResult, error) {
	title := strings.TrimSpace(in.Title)
	if err := validate(title, in.Amount); err != nil {
		return CreateResult{}, &WorkflowError{Stage: StageValidating, Err: err}
	}

	done := c.state.StartLoading()
	defer done()

	logger := c.opts.logger.With().Str("title", title).Logger()
	logger.Debug().Msg("creating expense")
	body, err := c.backend.CreateExpense(ctx, storage.Draft{
		Title:    title,
		Amount:   in.Amount,
		Date:     in.Date,
		Category: in.Category,
	})
	if err != nil {
		return CreateResult{}, &WorkflowError{Stage: StageCreating, Err: err}
	}
	id, ok := normalize.CreatedID(body)
	if !ok {
		return CreateResult{}, &WorkflowError{Stage: StageCreating, Err: &client.DataError{Msg: "Server did not return an expense id"}}
	}
	result := CreateResult{ExpenseID: id}
	logger = logger.With().Str("id", id).Logger()

	if in.Attachment != nil {
		presign, err := c.presign(ctx, id)
		if err != nil {
			return CreateResult{}, &WorkflowError{Stage: StagePresigning, Err: err}
		}
		if err := c.upload(ctx, presign.UploadURL, in.Attachment); err != nil {
			return CreateResult{}, &WorkflowError{Stage: StageUploading, Err: err}
		}
		result.ReceiptID = presign.ReceiptID
		logger.Info().Str("receipt", presign.ReceiptID).Msg("receipt uploaded")
	}

	c.sync.Refresh(ctx)
	if err := ctx.Err(); err != nil {
		return CreateResult{}, &WorkflowError{Stage: StageRefreshing, Err: &client.TransportError{Op: "refresh", Err: err}}
	}
	result.Stage = StageDone
	logger.Info().Msg("expense saved")
	return result, nil
}

func validate(title string, amount float64) error {
	if title == "" {
		return &client.ValidationError{Msg: "Please provide a title for the expense."}
	}
	if math.IsNaN(amount) || amount <= 0 {
		return &client.ValidationError{Msg: "Please provide a valid amount."}
	}
	return nil
}

// presign tries POST then GET. Both a transport failure and a non-success
// status move on to the next attempt.
func (c *Create) presign(ctx context.Context, expenseID string) (client.Presign, error) {
	presign, err := client.FirstSuccess(ctx, "Presign request",
		client.Attempt[client.Presign]{Name: "POST", Run: func(ctx context.Context) (client.Presign, error) {
			return c.backend.PresignPost(ctx, expenseID)
		}},
		client.Attempt[client.Presign]{Name: "GET", Run: func(ctx context.Context) (client.Presign, error) {
			return c.backend.PresignGet(ctx, expenseID)
		}},
	)
	if err != nil {
		return client.Presign{}, err
	}
	if presign.UploadURL == "" {
		return client.Presign{}, &client.DataError{Msg: "Presign response missing uploadUrl"}
	}
	return presign, nil
}

// upload PUTs the file with its content type, falling back to one derived
// from the file name, then retries once without the header.
func (c *Create) upload(ctx context.Context, uploadURL string, file *Attachment) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(file.Name))
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := client.FirstSuccess(ctx, "Upload",
		client.Attempt[struct{}]{Name: "with-header", Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.Upload(ctx, uploadURL, file.Data, contentType)
		}},
		client.Attempt[struct{}]{Name: "no-header", Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.Upload(ctx, uploadURL, file.Data, "")
		}},
	)
	return err
}
