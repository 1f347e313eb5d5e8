// Package cli implements the expensesync command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/client"
	"github.com/tanq16/expensesync/internal/config"
	"github.com/tanq16/expensesync/internal/controller"
	"github.com/tanq16/expensesync/internal/logging"
	"github.com/tanq16/expensesync/internal/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	EnvFile    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "expensesync",
		Short: "Track expenses against a REST backend",
		Long: `expensesync keeps a local view of an expense list in sync with a REST
backend and object storage for receipts. Without API_BASE it runs against
built-in fixture data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", msg)
				return NewExitError(ExitCommandError, msg)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewReceiptCommand(opts))
	cmd.AddCommand(NewSelfTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// app is the wiring shared by the client-side commands.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	store   storage.Store
	backend client.Backend
	state   *controller.State
	sync    *controller.Sync
	opts    []controller.Option
}

func newApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.EnvFile, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.NewConsole(level, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	store, err := storage.InitializeStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	var backend client.Backend
	if cfg.UseMock {
		backend = client.NewFixture(store, logger)
	} else {
		backend = client.NewHTTPClient(cfg.APIBase, client.WithTimeout(cfg.HTTPTimeout), client.WithLogger(logger))
	}
	logger.Debug().Bool("mock", cfg.UseMock).Str("api", cfg.APIBase).Str("storage", string(cfg.Storage.StorageType)).Msg("configured")

	ctrlOpts := []controller.Option{controller.WithLogger(logger), controller.WithMockMode(cfg.UseMock)}
	state := controller.NewState()
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		backend: backend,
		state:   state,
		sync:    controller.NewSync(backend, store, state, ctrlOpts...),
		opts:    ctrlOpts,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// setup builds the app, reporting configuration failures in the configured format.
func setup(opts *RootOptions, cmd *cobra.Command) (*app, *OutputFormatter, error) {
	formatter := newFormatter(opts, cmd)
	a, err := newApp(opts, cmd)
	if err != nil {
		return nil, formatter, fail(formatter, ExitCommandError, ErrCodeConfig, "configuration error", err)
	}
	return a, formatter, nil
}
