// Package materialize keeps recurring patterns materialized on a rolling
// horizon.
//
// A refresh advances each pattern's generatedUntil to today plus the horizon
// and reconciles its instances against the rule. Advancing generatedUntil is
// the only way instances further in the future come into existence.
package materialize

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/clock"
	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/reconcile"
	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
	"github.com/wneill3333/neill-planner-sub008/internal/repo"
	"github.com/wneill3333/neill-planner-sub008/internal/report"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// DefaultHorizonDays is how many days, today included, stay materialized.
const DefaultHorizonDays = 90

// Options configures a Refresher.
type Options struct {
	DryRun      bool
	UserID      string
	HorizonDays int
	BatchSize   int

	Location *time.Location
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Refresher advances pattern horizons.
type Refresher struct {
	patterns *repo.Patterns
	tasks    *repo.Tasks
	writer   Writer
	opts     Options
	log      *slog.Logger
}

// New returns a refresher over docs.
func New(docs repo.DocumentStore, rules *legacy.Validator, opts Options) *Refresher {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.BatchSize <= 0 || opts.BatchSize > store.MaxBatchOps {
		opts.BatchSize = store.MaxBatchOps
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{Location: opts.Location}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	tasks := repo.NewTasks(docs, opts.Location)
	patterns := repo.NewPatterns(docs, rules, opts.Location)
	return &Refresher{
		patterns: patterns,
		tasks:    tasks,
		writer:   Writer{Docs: docs, Tasks: tasks, Patterns: patterns, BatchSize: opts.BatchSize},
		opts:     opts,
		log:      opts.Logger.With("dry_run", opts.DryRun),
	}
}

// Horizon returns the last date that should be materialized as of today.
func Horizon(today time.Time, days int) time.Time {
	return recurrence.Midnight(today).AddDate(0, 0, days-1)
}

// Run refreshes every non-deleted pattern in scope. Failures are isolated per
// pattern and recorded in the report.
func (r *Refresher) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New(report.Refresh, r.opts.DryRun)

	loaded, err := r.patterns.ListActive(ctx, r.opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	slices.SortStableFunc(loaded, func(a, b repo.Loaded[model.Pattern]) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	r.log.Info("refreshing patterns", "count", len(loaded), "user_id", r.opts.UserID)

	for _, item := range loaded {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Record(item.UserID, func(u *report.UserResult) { u.Processed++ })
		if item.Err != nil {
			r.fail(rep, item.UserID, item.ID, item.Err)
			continue
		}
		if err := r.refreshOne(ctx, item.Value, rep); err != nil {
			r.fail(rep, item.UserID, item.ID, err)
		}
	}
	return rep, nil
}

func (r *Refresher) fail(rep *report.Report, userID, patternID string, err error) {
	r.log.Error("pattern refresh failed", "pattern_id", patternID, "user_id", userID, "error", err)
	rep.AddError(userID, patternID, err)
}

func (r *Refresher) refreshOne(ctx context.Context, pattern model.Pattern, rep *report.Report) error {
	now := r.opts.Clock.Now().In(r.opts.Location)
	today := recurrence.Midnight(now)

	advanced := false
	if h := Horizon(today, r.opts.HorizonDays); h.After(pattern.GeneratedUntil) {
		pattern.GeneratedUntil = h
		advanced = true
	}

	instances, err := r.tasks.ListPatternInstances(ctx, pattern.ID)
	if err != nil {
		return err
	}
	existing := make([]reconcile.Instance, len(instances))
	for i, t := range instances {
		existing[i] = reconcile.Describe(t)
	}
	plan := reconcile.Reconcile(pattern, existing, today)

	record := func(created, unlinked int) {
		rep.Record(pattern.UserID, func(u *report.UserResult) {
			u.InstancesGenerated += created
			u.InstancesUpdated += unlinked
		})
	}

	if r.opts.DryRun {
		record(len(plan.ToCreate), len(plan.ToUnlink))
		return nil
	}

	applied, err := r.writer.Apply(ctx, pattern, plan, now)
	record(len(applied.Created), applied.Unlinked)
	if err != nil {
		return err
	}

	// generatedUntil moves last so an interrupted refresh is redone.
	if advanced {
		until := pattern.GeneratedUntil
		if err := r.patterns.Update(ctx, pattern.ID, repo.PatternUpdate{GeneratedUntil: &until}, now); err != nil {
			return err
		}
	}
	r.log.Debug("pattern refreshed", "pattern_id", pattern.ID,
		"created", len(applied.Created), "unlinked", applied.Unlinked,
		"generated_until", recurrence.FormatDate(pattern.GeneratedUntil))
	return nil
}
