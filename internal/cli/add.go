package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/client"
	"github.com/tanq16/expensesync/internal/controller"
)

type addOptions struct {
	title       string
	amount      float64
	date        string
	category    string
	receipt     string
	contentType string
}

// AddResult is the JSON payload of the add command.
type AddResult struct {
	ExpenseID string `json:"expenseId"`
	ReceiptID string `json:"receiptId,omitempty"`
	Count     int    `json:"count"`
	Warning   string `json:"warning,omitempty"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	addOpts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an expense, optionally attaching a receipt",
		Long: `Create an expense on the backend. With --receipt the file is uploaded
to a presigned storage URL once the expense exists, and the list is
refreshed so the stored receipt key shows up.`,
		Example:       `  expensesync add --title Taxi --amount 100 --category Travel --receipt ./taxi.png`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(rootOpts, addOpts, cmd)
		},
	}

	cmd.Flags().StringVarP(&addOpts.title, "title", "t", "", "expense title")
	cmd.Flags().Float64VarP(&addOpts.amount, "amount", "a", 0, "amount, greater than zero")
	cmd.Flags().StringVarP(&addOpts.date, "date", "d", "", "date, e.g. 2025-08-28")
	cmd.Flags().StringVar(&addOpts.category, "category", "", "category")
	cmd.Flags().StringVarP(&addOpts.receipt, "receipt", "r", "", "receipt file to upload")
	cmd.Flags().StringVar(&addOpts.contentType, "content-type", "", "receipt content type (derived from the file name when empty)")

	return cmd
}

func runAdd(opts *RootOptions, addOpts *addOptions, cmd *cobra.Command) error {
	a, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	input := controller.CreateInput{
		Title:    addOpts.title,
		Amount:   addOpts.amount,
		Date:     addOpts.date,
		Category: addOpts.category,
	}
	if addOpts.receipt != "" {
		data, err := os.ReadFile(addOpts.receipt)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeInput, "cannot read receipt", err)
		}
		input.Attachment = &controller.Attachment{
			Name:        filepath.Base(addOpts.receipt),
			ContentType: addOpts.contentType,
			Data:        data,
		}
	}

	create := controller.NewCreate(a.backend, a.sync, a.state, a.opts...)
	res, err := create.Run(cmd.Context(), input)
	if err != nil {
		var verr *client.ValidationError
		if errors.As(err, &verr) {
			return fail(formatter, ExitCommandError, ErrCodeInput, verr.Msg, nil)
		}
		return fail(formatter, ExitFailure, ErrCodeBackend, "failed to save expense", err)
	}

	result := AddResult{
		ExpenseID: res.ExpenseID,
		ReceiptID: res.ReceiptID,
		Count:     len(a.state.Expenses()),
		Warning:   a.state.Error(),
	}
	formatter.Warn(result.Warning)
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintln(w, a.state.Info())
		fmt.Fprintf(w, "  id:      %s\n", res.ExpenseID)
		if res.ReceiptID != "" {
			fmt.Fprintf(w, "  receipt: %s\n", res.ReceiptID)
		}
	})
}
