package cli

import (
	"github.com/spf13/cobra"

	"github.com/wneill3333/neill-planner-sub008/internal/materialize"
)

// RefreshOptions holds flags for the refresh command.
type RefreshOptions struct {
	*RootOptions
	DryRun  bool
	Horizon int
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RefreshOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "refresh [userId]",
		Short: "Advance every pattern's horizon and reconcile its instances",
		Long: `Advance generatedUntil of every active recurring pattern to today plus the
horizon, create missing instances, and unlink future instances the rule no
longer selects. Meant to run daily.

Example:
  planner refresh
  planner refresh user-123 --dry-run`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := ""
			if len(args) == 1 {
				userID = args[0]
			}
			return runRefresh(opts, userID, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().IntVar(&opts.Horizon, "horizon", 0, "days to materialize, today included (default from config)")

	return cmd
}

func runRefresh(opts *RefreshOptions, userID string, cmd *cobra.Command) error {
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

	sess.log.Info("refresh starting", "db", sess.database, "user_id", userID, "dry_run", opts.DryRun)
	r := materialize.New(sess.store, sess.rules, materialize.Options{
		DryRun:      opts.DryRun,
		UserID:      userID,
		HorizonDays: sess.horizon(opts.Horizon),
		BatchSize:   sess.cfg.BatchSize,
		Location:    sess.loc,
		Clock:       sess.clock,
		Logger:      sess.log,
	})

	rep, err := r.Run(ctx)
	if err != nil {
		if rep != nil {
			_ = sess.format.Report(rep)
			return WrapExitError(ExitFailure, "refresh interrupted", err)
		}
		_ = sess.format.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "refresh failed", err)
	}

	return sess.format.Report(rep)
}
