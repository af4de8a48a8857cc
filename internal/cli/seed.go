package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wneill3333/neill-planner-sub008/internal/fixtures"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load tasks and patterns from a YAML fixture into the store",
		Long: `Load the documents of a YAML fixture into the target store. Documents keep
their fixture ids; an existing document with the same id is replaced.

Example:
  planner seed testdata/weekly.yaml`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

// SeedResult is the JSON payload of the seed command.
type SeedResult struct {
	Fixture   string `json:"fixture"`
	Documents int    `json:"documents"`
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	fx, err := fixtures.Load(path)
	if err != nil {
		_ = newFormatter(opts, cmd).Error(ErrCodeFixture, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load fixture", err)
	}

	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	n, err := fx.Seed(cmd.Context(), sess.store)
	if err != nil {
		_ = sess.format.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to seed store", err)
	}
	sess.log.Info("fixture seeded", "fixture", fx.Name, "documents", n, "db", sess.database)

	if sess.format.Format == "json" {
		return sess.format.Success(SeedResult{Fixture: fx.Name, Documents: n})
	}
	return sess.format.Success(fmt.Sprintf("seeded %d document(s) from %s", n, fx.Name))
}
