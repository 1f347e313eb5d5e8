package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/controller"
)

// ReceiptResult is the JSON payload of the receipt command.
type ReceiptResult struct {
	ReceiptKey string `json:"receiptKey"`
	URL        string `json:"url"`
}

// NewReceiptCommand creates the receipt command.
func NewReceiptCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <receipt-key>",
		Short: "Print a URL the receipt can be opened at",
		Long: `Ask the backend for a download URL for a stored receipt. When the
backend cannot provide one, the direct object-storage URL built from
S3_BASE is printed instead; the bucket may still deny access to it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceipt(rootOpts, args[0], cmd)
		},
	}
}

func runReceipt(opts *RootOptions, key string, cmd *cobra.Command) error {
	a, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	url, ok := controller.NewReceipts(a.backend, a.cfg.StorageBase, a.state, a.opts...).Resolve(cmd.Context(), key)
	if !ok {
		return fail(formatter, ExitCommandError, ErrCodeInput, "receipt key is empty", nil)
	}
	return formatter.Success(ReceiptResult{ReceiptKey: key, URL: url}, func(w io.Writer) {
		fmt.Fprintln(w, url)
	})
}
