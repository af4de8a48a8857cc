package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/preview"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Rule   string
	Anchor string
	From   string
	To     string
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List the dates a recurrence rule selects",
		Long: `List the dates a recurrence rule selects between --from and --to. The rule
uses the legacy recurrence JSON shape. Nothing is read from or written to the
store.

Example:
  planner preview --rule '{"type":"monthly","dayOfMonth":31}' --anchor 2026-01-31 --to 2026-06-30
  planner preview --rule '{"type":"weekly","daysOfWeek":[1,3]}' --anchor 2026-10-19 --to 2026-11-30 --format json`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rule, "rule", "", "recurrence rule as JSON (required)")
	cmd.Flags().StringVar(&opts.Anchor, "anchor", "", "pattern start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.From, "from", "", "first date of the window (default anchor)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last date of the window, YYYY-MM-DD (required)")

	return cmd
}

func runPreview(opts *PreviewOptions, cmd *cobra.Command) error {
	var missing []string
	for name, v := range map[string]string{"rule": opts.Rule, "anchor": opts.Anchor, "to": opts.To} {
		if v == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return NewExitError(ExitCommandError, fmt.Sprintf("required flag(s) not set: %s", strings.Join(missing, ", ")))
	}

	setupLogging(opts.Verbose, cmd.ErrOrStderr())
	f := newFormatter(opts.RootOptions, cmd)

	_, loc, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	rules, err := legacy.NewValidator()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build recurrence schema", err)
	}

	res, err := preview.Occurrences(rules, preview.Request{
		Rule:   opts.Rule,
		Anchor: opts.Anchor,
		From:   opts.From,
		To:     opts.To,
	}, loc)
	if err != nil {
		_ = f.Error(ErrCodeInvalidRule, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid preview request", err)
	}

	if f.Format == "json" {
		return f.Success(res)
	}

	w := f.Writer
	fmt.Fprintf(w, "%s %s..%s: %d occurrence(s)\n", res.Type, res.From, res.To, len(res.Dates))
	for _, d := range res.Dates {
		fmt.Fprintln(w, d)
	}
	return nil
}
