package cli

import (
	"github.com/spf13/cobra"

	"github.com/wneill3333/neill-planner-sub008/internal/migrate"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	DryRun  bool
	Horizon int
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate [userId]",
		Short: "Convert legacy recurring tasks into recurring patterns",
		Long: `Convert every legacy recurring task into a recurring pattern, link its
existing instances to the pattern, and materialize instances up to the
horizon. The legacy task is soft-deleted and points at its pattern.

Tasks are migrated one at a time; a failing task is reported and the run
continues. Re-running is safe: already migrated tasks are skipped and a task
whose pattern was created by an interrupted run reuses it.

Example:
  planner migrate --dry-run
  planner migrate user-123 --format json`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := ""
			if len(args) == 1 {
				userID = args[0]
			}
			return runMigrate(opts, userID, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().IntVar(&opts.Horizon, "horizon", 0, "days to materialize, today included (default from config)")

	return cmd
}

func runMigrate(opts *MigrateOptions, userID string, cmd *cobra.Command) error {
	if err := validateHorizon(opts.Horizon); err != nil {
		return err
	}

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext(cmd, sess.log)
	defer cancel()

	sess.log.Info("migration starting", "db", sess.database, "user_id", userID, "dry_run", opts.DryRun)
	driver := migrate.New(sess.store, sess.rules, migrate.Options{
		DryRun:      opts.DryRun,
		UserID:      userID,
		HorizonDays: sess.horizon(opts.Horizon),
		BatchSize:   sess.cfg.BatchSize,
		Location:    sess.loc,
		Clock:       sess.clock,
		Logger:      sess.log,
	})

	res, err := driver.Run(ctx)
	if err != nil {
		if res != nil {
			// Interrupted: show what completed before stopping.
			_ = sess.format.Report(res.Report)
			return WrapExitError(ExitFailure, "migration interrupted", err)
		}
		_ = sess.format.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "migration failed", err)
	}
	sess.log.Info("migration finished", "tasks", len(res.Tasks), "dry_run", opts.DryRun)

	return sess.format.Report(res.Report)
}
