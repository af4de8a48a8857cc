package cli

import (
	"github.com/spf13/cobra"

	"github.com/wneill3333/neill-planner-sub008/internal/mcp"
)

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve read-only planner tools over MCP (stdio)",
		Long: `Start an MCP server on stdin/stdout exposing occurrence preview and
migration/refresh dry runs. The tools never write to the store.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(rootOpts, version, cmd)
		},
	}
	return cmd
}

func runMCP(opts *RootOptions, version string, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	s := mcp.NewServer(version, mcp.Deps{
		Docs:        sess.store,
		Rules:       sess.rules,
		Location:    sess.loc,
		HorizonDays: sess.cfg.HorizonDays,
		BatchSize:   sess.cfg.BatchSize,
		Clock:       sess.clock,
		Logger:      sess.log,
	})
	sess.log.Info("mcp server starting", "db", sess.database)
	if err := mcp.Serve(s); err != nil {
		return WrapExitError(ExitFailure, "mcp server error", err)
	}
	return nil
}
