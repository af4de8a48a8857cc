// Package migrate converts legacy recurring tasks into recurring patterns.
//
// Each legacy parent task moves through discovered, pattern-converted,
// instances-linked, instances-generated and migrated, in that order. A
// failure in any step moves the task to failed, is recorded in the report,
// and does not stop the run. The legacy task is only marked migrated after
// its instances have been generated.
package migrate

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/clock"
	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/materialize"
	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/reconcile"
	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
	"github.com/wneill3333/neill-planner-sub008/internal/repo"
	"github.com/wneill3333/neill-planner-sub008/internal/report"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// Defaults for Options.
const (
	DefaultHorizonDays = 90
	DefaultBatchSize   = store.MaxBatchOps
)

// Options configures a Driver.
type Options struct {
	// DryRun computes and reports every effect without writing.
	DryRun bool
	// UserID limits the run to one user. Empty means all users.
	UserID string

	HorizonDays int
	BatchSize   int

	Location *time.Location
	Clock    clock.Clock
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultHorizonDays
	}
	if o.BatchSize <= 0 || o.BatchSize > store.MaxBatchOps {
		o.BatchSize = DefaultBatchSize
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = clock.System{Location: o.Location}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// TaskResult is the outcome for one legacy task.
type TaskResult struct {
	TaskID    string
	UserID    string
	PatternID string // empty in dry-run unless an existing pattern was reused
	State     State
	Err       error
}

// Result is the outcome of a run.
type Result struct {
	Report *report.Report
	Tasks  []TaskResult
}

// Driver runs the legacy migration.
type Driver struct {
	docs     repo.DocumentStore
	rules    *legacy.Validator
	tasks    *repo.Tasks
	patterns *repo.Patterns
	writer   materialize.Writer
	opts     Options
	log      *slog.Logger
}

// New returns a driver over docs.
func New(docs repo.DocumentStore, rules *legacy.Validator, opts Options) *Driver {
	opts.defaults()
	tasks := repo.NewTasks(docs, opts.Location)
	patterns := repo.NewPatterns(docs, rules, opts.Location)
	return &Driver{
		docs:     docs,
		rules:    rules,
		tasks:    tasks,
		patterns: patterns,
		writer:   materialize.Writer{Docs: docs, Tasks: tasks, Patterns: patterns, BatchSize: opts.BatchSize},
		opts:     opts,
		log:      opts.Logger.With("dry_run", opts.DryRun),
	}
}

// Run discovers legacy parents and migrates them one at a time, grouped by
// user in user id order. The returned error is only set for failures that
// abort the whole run (discovery, cancellation); per-task failures are in the
// report.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	res := &Result{Report: report.New(report.Migration, d.opts.DryRun)}

	found, err := d.tasks.ListLegacyParents(ctx, d.opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("discover legacy tasks: %w", err)
	}
	d.log.Info("discovered legacy recurring tasks", "count", len(found), "user_id", d.opts.UserID)

	// Stable sort keeps store order within a user.
	slices.SortStableFunc(found, func(a, b repo.Loaded[model.Task]) int {
		return cmp.Compare(a.UserID, b.UserID)
	})

	for _, item := range found {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tr := d.migrateOne(ctx, item, res.Report)
		res.Tasks = append(res.Tasks, tr)
	}
	return res, nil
}

func (d *Driver) migrateOne(ctx context.Context, item repo.Loaded[model.Task], rep *report.Report) TaskResult {
	tr := TaskResult{TaskID: item.ID, UserID: item.UserID, State: StateDiscovered}
	log := d.log.With("task_id", item.ID, "user_id", item.UserID)
	rep.Record(item.UserID, func(u *report.UserResult) { u.Processed++ })

	fail := func(err error) TaskResult {
		se := &StepError{TaskID: item.ID, Reached: tr.State, Err: err}
		log.Error("legacy task migration failed", "state", se.Step(), "error", err)
		rep.AddError(item.UserID, item.ID, se)
		tr.State, tr.Err = StateFailed, se
		return tr
	}

	if item.Err != nil {
		return fail(item.Err)
	}
	task := item.Value

	now := d.opts.Clock.Now().In(d.opts.Location)
	today := recurrence.Midnight(now)

	pattern, created, err := d.convert(ctx, task, today, now)
	if err != nil {
		return fail(err)
	}
	tr.PatternID = pattern.ID
	tr.State = StatePatternConverted
	if created {
		rep.Record(task.UserID, func(u *report.UserResult) { u.PatternsCreated++ })
	}
	log.Debug("pattern converted", "pattern_id", pattern.ID, "created", created, "type", pattern.Rule.Type)

	linked, err := d.link(ctx, task, pattern, now)
	if err != nil {
		return fail(err)
	}
	tr.State = StateInstancesLinked
	rep.Record(task.UserID, func(u *report.UserResult) { u.InstancesUpdated += len(linked) })
	log.Debug("instances linked", "count", len(linked))

	generated, err := d.generate(ctx, pattern, linked, today, now)
	if err != nil {
		return fail(err)
	}
	tr.State = StateInstancesGenerated
	rep.Record(task.UserID, func(u *report.UserResult) { u.InstancesGenerated += generated })
	log.Debug("instances generated", "count", generated)

	if !d.opts.DryRun {
		if err := d.tasks.MarkMigrated(ctx, task.ID, pattern.ID, now); err != nil {
			return fail(err)
		}
	}
	tr.State = StateMigrated
	log.Info("legacy task migrated", "pattern_id", pattern.ID, "linked", len(linked), "generated", generated)
	return tr
}

// convert builds the pattern for a legacy task, or reuses one an earlier
// interrupted run already created.
func (d *Driver) convert(ctx context.Context, task model.Task, today, now time.Time) (model.Pattern, bool, error) {
	rule, err := d.rules.Parse(task.Recurrence, d.opts.Location)
	if err != nil {
		return model.Pattern{}, false, err
	}

	existing, ok, err := d.patterns.FindByLegacyTask(ctx, task.ID)
	if err != nil {
		return model.Pattern{}, false, err
	}
	if ok {
		d.log.Info("reusing pattern from earlier run", "task_id", task.ID, "pattern_id", existing.ID)
		return existing, false, nil
	}

	start := today
	if task.ScheduledDate != nil {
		start = recurrence.Midnight(task.ScheduledDate.In(d.opts.Location))
	}
	p := model.Pattern{
		UserID:             task.UserID,
		Template:           task.Template,
		Rule:               rule,
		StartDate:          start,
		GeneratedUntil:     today.AddDate(0, 0, d.opts.HorizonDays-1),
		MigratedFromTaskID: task.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if d.opts.DryRun {
		return p, true, nil
	}

	id, err := d.patterns.Create(ctx, p)
	if err != nil {
		return model.Pattern{}, false, err
	}
	p.ID = id
	return p, true, nil
}

// link re-points the legacy task's existing instances at the pattern.
func (d *Driver) link(ctx context.Context, task model.Task, pattern model.Pattern, now time.Time) ([]model.Task, error) {
	instances, err := d.tasks.ListLegacyInstances(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		instances[i].RecurringPatternID = pattern.ID
		instances[i].RecurringParentID = ""
		instances[i].IsRecurringInstance = false
	}
	if d.opts.DryRun || len(instances) == 0 {
		return instances, nil
	}

	muts := make([]store.Mutation, len(instances))
	for i, inst := range instances {
		muts[i] = repo.LinkMutation(inst.ID, pattern.ID, now)
	}
	batches, err := repo.CommitChunked(ctx, d.docs, muts, d.opts.BatchSize)
	if err != nil {
		return nil, err
	}
	d.log.Debug("link batches committed", "task_id", task.ID, "batches", batches)
	return instances, nil
}

// generate materializes the pattern over [today, generatedUntil]. Dates
// already covered by a linked instance, or by one from an earlier
// interrupted run, are not created again. Linked instances that would break
// the one-per-date or one-pending invariants are unlinked.
func (d *Driver) generate(ctx context.Context, pattern model.Pattern, linked []model.Task, today, now time.Time) (int, error) {
	var owned []model.Task
	if pattern.ID != "" {
		var err error
		if owned, err = d.tasks.ListPatternInstances(ctx, pattern.ID); err != nil {
			return 0, err
		}
	}
	seen := make(map[string]bool, len(owned))
	existing := make([]reconcile.Instance, 0, len(owned)+len(linked))
	for _, t := range owned {
		seen[t.ID] = true
		existing = append(existing, reconcile.Describe(t))
	}
	for _, t := range linked {
		if !seen[t.ID] {
			existing = append(existing, reconcile.Describe(t))
		}
	}

	plan := reconcile.Reconcile(pattern, existing, today)
	if d.opts.DryRun {
		return len(plan.ToCreate), nil
	}

	applied, err := d.writer.Apply(ctx, pattern, plan, now)
	if applied.Unlinked > 0 {
		d.log.Debug("duplicate instances unlinked", "pattern_id", pattern.ID, "count", applied.Unlinked)
	}
	return len(applied.Created), err
}
