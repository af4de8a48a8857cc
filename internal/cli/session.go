package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wneill3333/neill-planner-sub008/internal/clock"
	"github.com/wneill3333/neill-planner-sub008/internal/config"
	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// session is what every store-backed command runs against.
type session struct {
	cfg      *config.Config
	store    *store.Store
	rules    *legacy.Validator
	loc      *time.Location
	clock    clock.Clock
	log      *slog.Logger
	format   *OutputFormatter
	database string
}

// setupLogging installs the process logger. Logs go to stderr so they never
// mix with report output.
func setupLogging(verbose bool, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads configuration and resolves the timezone. Failures are
// top-level failures, not usage errors.
func loadConfig(opts *RootOptions, f *OutputFormatter) (*config.Config, *time.Location, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, nil, WrapExitError(ExitFailure, "failed to load config", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, nil, WrapExitError(ExitFailure, "failed to load config", err)
	}
	return cfg, loc, nil
}

// openSession loads config, resolves the target store and opens it. The
// caller must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	log := setupLogging(opts.Verbose, cmd.ErrOrStderr())
	f := newFormatter(opts, cmd)

	cfg, loc, err := loadConfig(opts, f)
	if err != nil {
		return nil, err
	}

	target, err := cfg.Target()
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitFailure, "failed to resolve target store", err)
	}
	f.VerboseLog("target store: %s", target)

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = f.Error(ErrCodeStore, err.Error(), nil)
			return nil, WrapExitError(ExitFailure, "failed to open database", err)
		}
	}

	log.Debug("opening database", "path", target)
	st, err := store.Open(target)
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return nil, WrapExitError(ExitFailure, "failed to open database", err)
	}

	rules, err := legacy.NewValidator()
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitFailure, "failed to build recurrence schema", err)
	}

	return &session{
		cfg:      cfg,
		store:    st,
		rules:    rules,
		loc:      loc,
		clock:    clock.System{Location: loc},
		log:      log,
		format:   f,
		database: target,
	}, nil
}

func (s *session) Close() {
	if closeErr := s.store.Close(); closeErr != nil {
		s.log.Error("error closing database", "error", closeErr)
	}
}

// horizon returns the flag override when set, else the configured horizon.
func (s *session) horizon(override int) int {
	if override > 0 {
		return override
	}
	return s.cfg.HorizonDays
}

// signalContext cancels on SIGINT/SIGTERM so a run stops between items.
// Uses the command's context if available (for testing).
func signalContext(cmd *cobra.Command, log *slog.Logger) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, stopping after current item", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func validateHorizon(n int) error {
	if n < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--horizon must be positive, got %d", n))
	}
	return nil
}
