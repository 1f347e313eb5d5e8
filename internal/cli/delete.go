package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/controller"
)

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	ExpenseID string `json:"expenseId"`
	Deleted   bool   `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <expense-id>",
		Short: "Delete an expense after confirmation",
		Long: `Delete an expense on the backend. The command asks for confirmation on
stdin unless --yes is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], yes, cmd)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runDelete(opts *RootOptions, id string, yes bool, cmd *cobra.Command) error {
	a, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var confirm controller.Confirmer = promptConfirmer{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
	if yes {
		confirm = controller.ConfirmFunc(func(context.Context, string) bool { return true })
	}

	err = controller.NewDelete(a.backend, confirm, a.state, a.opts...).Delete(cmd.Context(), id)
	switch {
	case errors.Is(err, controller.ErrNotConfirmed):
		return fail(formatter, ExitFailure, ErrCodeDeclined, "deletion cancelled", nil)
	case err != nil:
		return fail(formatter, ExitFailure, ErrCodeBackend, a.state.Error(), nil)
	}
	return formatter.Success(DeleteResult{ExpenseID: id, Deleted: true}, func(w io.Writer) {
		fmt.Fprintln(w, a.state.Info())
	})
}

// promptConfirmer asks on out and reads a yes/no answer from in.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(ctx context.Context, prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
