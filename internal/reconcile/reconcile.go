// Package reconcile diffs the dates a pattern should cover against the
// instances that already exist and plans the minimal set of changes.
//
// Reconcile is pure: it performs no I/O and cannot fail. Callers apply the
// plan (see packages migrate and materialize).
package reconcile

import (
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

// Instance describes an existing task linked to the pattern.
type Instance struct {
	ID          string
	Date        *time.Time
	Status      model.TaskStatus
	CompletedAt *time.Time
	Deleted     bool
}

// Describe reduces a task to what the reconciler reads.
func Describe(t model.Task) Instance {
	return Instance{
		ID:          t.ID,
		Date:        t.ScheduledDate,
		Status:      t.Status,
		CompletedAt: t.CompletedAt,
		Deleted:     t.IsDeleted(),
	}
}

func (i Instance) pending() bool {
	return !i.Deleted && i.Status != model.StatusComplete
}

// Draft is a task instance to create.
type Draft struct {
	PatternID string
	UserID    string
	Template  model.Template
	Date      time.Time
}

// Task converts the draft into a new in-progress task linked to its pattern.
func (d Draft) Task() model.Task {
	date := d.Date
	return model.Task{
		UserID:             d.UserID,
		Template:           d.Template,
		ScheduledDate:      &date,
		Status:             model.StatusInProgress,
		RecurringPatternID: d.PatternID,
	}
}

// Plan is the outcome of one reconciliation.
type Plan struct {
	ToCreate []Draft
	// ToUnlink lists instances whose pattern link should be cleared. They are
	// not deleted.
	ToUnlink []string

	// ActivateCreated is set for afterCompletion patterns when the single
	// draft in ToCreate becomes the pattern's active instance.
	ActivateCreated bool
	// AdoptActiveID names an existing pending instance that should become the
	// active instance of an afterCompletion pattern.
	AdoptActiveID string
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUnlink) == 0 && !p.ActivateCreated && p.AdoptActiveID == ""
}

// Reconcile plans the changes that bring pattern's instances in line with its
// rule as of today. Deleted patterns yield an empty plan.
//
// AfterCompletion patterns keep at most one pending instance linked; extra
// pending instances are unlinked.
//
// Calendar patterns cover [today, generatedUntil]. An existing instance keeps
// its date covered even when deleted, so a materialized date is never
// recreated. Non-deleted instances in the window on dates the rule no longer
// selects, and duplicates of a covered date, are unlinked. Instances outside
// the window are left alone.
func Reconcile(pattern model.Pattern, existing []Instance, today time.Time) Plan {
	if pattern.IsDeleted() {
		return Plan{}
	}
	loc := pattern.StartDate.Location()
	today = recurrence.Midnight(today.In(loc))

	if pattern.Rule.Type == recurrence.AfterCompletion {
		return afterCompletion(pattern, existing, today)
	}
	return calendar(pattern, existing, today)
}

func calendar(pattern model.Pattern, existing []Instance, today time.Time) Plan {
	var plan Plan
	loc := pattern.StartDate.Location()
	until := recurrence.Midnight(pattern.GeneratedUntil.In(loc))

	wanted := recurrence.Generate(pattern.Rule, pattern.StartDate, today, until)
	selected := make(map[string]bool, len(wanted))
	for _, d := range wanted {
		selected[recurrence.FormatDate(d)] = true
	}

	covered := make(map[string]bool, len(existing))
	live := make(map[string]bool, len(existing))
	for _, inst := range existing {
		if inst.Date == nil {
			continue
		}
		d := recurrence.Midnight(inst.Date.In(loc))
		key := recurrence.FormatDate(d)
		covered[key] = true
		if inst.Deleted {
			continue
		}
		if d.Before(today) || d.After(until) {
			continue
		}
		if !selected[key] || live[key] {
			plan.ToUnlink = append(plan.ToUnlink, inst.ID)
			continue
		}
		live[key] = true
	}

	for _, d := range wanted {
		if covered[recurrence.FormatDate(d)] {
			continue
		}
		plan.ToCreate = append(plan.ToCreate, draft(pattern, d))
	}
	return plan
}

func afterCompletion(pattern model.Pattern, existing []Instance, today time.Time) Plan {
	rule := pattern.Rule
	loc := pattern.StartDate.Location()

	var (
		active        *Instance
		firstPending  *Instance
		lastCompleted *time.Time
		count         int
	)
	for i := range existing {
		inst := &existing[i]
		if pattern.ActiveInstanceID != "" && inst.ID == pattern.ActiveInstanceID {
			active = inst
		}
		if !inst.Deleted {
			count++
		}
		if inst.pending() && firstPending == nil {
			firstPending = inst
		}
		if inst.Status == model.StatusComplete {
			done := inst.CompletedAt
			if done == nil {
				done = inst.Date
			}
			if done != nil && (lastCompleted == nil || done.After(*lastCompleted)) {
				lastCompleted = done
			}
		}
	}

	// At most one pending instance stays linked: the active one if it is
	// still pending, else the first pending one, which is adopted.
	var kept *Instance
	var plan Plan
	switch {
	case active != nil && active.pending():
		kept = active
	case firstPending != nil:
		kept = firstPending
		plan.AdoptActiveID = firstPending.ID
	}
	if kept != nil {
		for _, inst := range existing {
			if inst.pending() && inst.ID != kept.ID {
				plan.ToUnlink = append(plan.ToUnlink, inst.ID)
			}
		}
		return plan
	}
	if rule.End.Kind == recurrence.EndAfterCount && count >= rule.End.Count {
		return Plan{}
	}

	base := pattern.StartDate
	if lastCompleted != nil {
		base = recurrence.Midnight(lastCompleted.In(loc)).AddDate(0, 0, rule.DaysAfterCompletion)
	}
	d := base
	if today.After(d) {
		d = today
	}

	// Exceptions push the single occurrence to the next free day.
	for range len(rule.Exceptions) + 1 {
		if got := recurrence.Generate(rule, d, d, d); len(got) == 1 {
			return Plan{ToCreate: []Draft{draft(pattern, got[0])}, ActivateCreated: true}
		}
		if !rule.IsException(d) {
			break
		}
		d = d.AddDate(0, 0, 1)
	}
	return Plan{}
}

func draft(p model.Pattern, d time.Time) Draft {
	return Draft{PatternID: p.ID, UserID: p.UserID, Template: p.Template, Date: d}
}
