package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/storage"
)

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Expenses []storage.Expense `json:"expenses"`
	Mock     bool              `json:"mock"`
	Error    string            `json:"error,omitempty"`
	Info     string            `json:"info,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Fetch and print the expense list",
		Long: `Fetch the expense list from the backend and print it.

When the backend cannot be reached the fixture data is printed instead and
a warning explains why.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	a, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	expenses := a.sync.Refresh(cmd.Context())
	result := ListResult{
		Expenses: expenses,
		Mock:     a.cfg.UseMock,
		Error:    a.state.Error(),
		Info:     a.state.Info(),
	}
	formatter.Warn(result.Error)
	formatter.Note(result.Info)
	return formatter.Success(result, func(w io.Writer) {
		printExpenses(w, expenses)
	})
}

func printExpenses(w io.Writer, expenses []storage.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAMOUNT\tDATE\tCATEGORY\tRECEIPT")
	for _, e := range expenses {
		receipt := "-"
		if e.ReceiptKey != nil {
			receipt = *e.ReceiptKey
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Title, formatAmount(e.Amount), orDash(e.Date), orDash(e.Category), receipt)
	}
	tw.Flush()
}

func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
