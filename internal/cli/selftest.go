package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/selftest"
)

// NewSelfTestCommand creates the selftest command.
func NewSelfTestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run a quick end-to-end check against the backend",
		Long: `Fetch the list and create a "SelfTest" expense. Against a live backend
the created record is left in place.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfTest(rootOpts, cmd)
		},
	}
}

func runSelfTest(opts *RootOptions, cmd *cobra.Command) error {
	a, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	results := selftest.New(a.sync, a.backend, a.cfg.UseMock, a.logger).Run(cmd.Context())

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	if failed == 0 {
		return formatter.Success(results, func(w io.Writer) { renderResults(w, results) })
	}

	msg := fmt.Sprintf("%d of %d self-tests failed", failed, len(results))
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeSelfTest, msg, results); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	renderResults(formatter.Writer, results)
	return fail(formatter, ExitFailure, ErrCodeSelfTest, msg, nil)
}

func renderResults(w io.Writer, results []selftest.Result) {
	for _, r := range results {
		mark := "✓"
		if !r.OK {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, r.Name, r.Note)
	}
}
