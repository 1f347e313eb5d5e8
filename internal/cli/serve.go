package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanq16/expensesync/internal/api"
	"github.com/tanq16/expensesync/internal/config"
	"github.com/tanq16/expensesync/internal/logging"
	"github.com/tanq16/expensesync/internal/storage"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	listen         string
	envelope       string
	presignGetOnly bool
	maxUpload      int64
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	serveOpts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a fixture backend over the configured store",
		Long: `Serve the expense REST API over the configured store (memory or
postgres). The list envelope and presign behaviour can be switched to
emulate different deployments.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, serveOpts, cmd)
		},
	}

	cmd.Flags().StringVarP(&serveOpts.listen, "listen", "l", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&serveOpts.envelope, "envelope", "", "list response shape: array, items, expenses or typed")
	cmd.Flags().BoolVar(&serveOpts.presignGetOnly, "presign-get-only", false, "reject POST presign requests")
	cmd.Flags().Int64Var(&serveOpts.maxUpload, "max-upload", 0, "maximum receipt size in bytes (default 10 MiB)")

	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, serveOpts *serveOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	cfg, err := config.Load(opts.EnvFile, opts.ConfigPath)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConfig, "configuration error", err)
	}
	if serveOpts.listen != "" {
		cfg.Listen = serveOpts.listen
	}
	if serveOpts.envelope != "" {
		cfg.Envelope = serveOpts.envelope
	}
	shape, ok := api.ParseShape(cfg.Envelope)
	if !ok {
		return fail(formatter, ExitCommandError, ErrCodeInput, fmt.Sprintf("unsupported envelope %q", cfg.Envelope), nil)
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cmd.ErrOrStderr())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConfig, "configuration error", err)
	}

	store, err := storage.InitializeStorage(cfg.Storage)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConfig, "failed to initialize storage", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, api.Options{
		Shape:          shape,
		PresignGetOnly: serveOpts.presignGetOnly,
		MaxUploadBytes: serveOpts.maxUpload,
	}, logger)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConfig, "cannot listen", err)
	}
	srv := &http.Server{
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Str("envelope", string(shape)).Str("storage", string(cfg.Storage.StorageType)).Msg("serving")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fail(formatter, ExitFailure, ErrCodeBackend, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fail(formatter, ExitFailure, ErrCodeBackend, "shutdown failed", err)
	}
	return nil
}
