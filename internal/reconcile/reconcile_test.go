package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func dailyPattern(start, until time.Time) model.Pattern {
	return model.Pattern{
		ID:             "pat-1",
		UserID:         "u1",
		Template:       model.Template{Title: "Stretch", Priority: "A1"},
		Rule:           recurrence.Rule{Type: recurrence.Daily, Interval: 1, End: recurrence.Never()},
		StartDate:      start,
		GeneratedUntil: until,
	}
}

// apply turns drafts into existing instances, the way a caller would after
// persisting them.
func apply(existing []Instance, plan Plan) []Instance {
	out := append([]Instance(nil), existing...)
	for i, d := range plan.ToCreate {
		out = append(out, Instance{
			ID:     fmt.Sprintf("new-%d", i),
			Date:   ptr(d.Date),
			Status: model.StatusInProgress,
		})
	}
	return out
}

func TestReconcile_CreatesMissingDates(t *testing.T) {
	p := dailyPattern(day(2026, 3, 1), day(2026, 3, 7))
	existing := []Instance{
		{ID: "a", Date: ptr(day(2026, 3, 2)), Status: model.StatusComplete},
		{ID: "b", Date: ptr(day(2026, 3, 4))},
	}

	plan := Reconcile(p, existing, day(2026, 3, 3))

	var dates []string
	for _, d := range plan.ToCreate {
		dates = append(dates, recurrence.FormatDate(d.Date))
		assert.Equal(t, "pat-1", d.PatternID)
		assert.Equal(t, "u1", d.UserID)
		assert.Equal(t, "Stretch", d.Template.Title)
	}
	assert.Equal(t, []string{"2026-03-03", "2026-03-05", "2026-03-06", "2026-03-07"}, dates)
	assert.Empty(t, plan.ToUnlink)
}

func TestReconcile_SecondRunIsNoOp(t *testing.T) {
	p := dailyPattern(day(2026, 3, 1), day(2026, 5, 29))
	today := day(2026, 3, 1)

	first := Reconcile(p, nil, today)
	require.Len(t, first.ToCreate, 90)

	second := Reconcile(p, apply(nil, first), today)
	assert.Empty(t, second.ToCreate)
	assert.True(t, second.Empty())
}

func TestReconcile_DeletedInstanceStillCoversDate(t *testing.T) {
	p := dailyPattern(day(2026, 3, 1), day(2026, 3, 3))
	existing := []Instance{
		{ID: "a", Date: ptr(day(2026, 3, 2)), Deleted: true},
	}

	plan := Reconcile(p, existing, day(2026, 3, 1))
	require.Len(t, plan.ToCreate, 2)
	assert.Equal(t, day(2026, 3, 1), plan.ToCreate[0].Date)
	assert.Equal(t, day(2026, 3, 3), plan.ToCreate[1].Date)
	assert.Empty(t, plan.ToUnlink)
}

func TestReconcile_UnlinksOrphansInWindowOnly(t *testing.T) {
	p := dailyPattern(day(2026, 3, 2), day(2026, 3, 20))
	p.Rule = recurrence.Rule{
		Type:       recurrence.Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		End:        recurrence.Never(),
	}
	existing := []Instance{
		{ID: "past", Date: ptr(day(2026, 3, 3))}, // Tuesday, before today
		{ID: "mon", Date: ptr(day(2026, 3, 9))},  // Monday
		{ID: "dup", Date: ptr(day(2026, 3, 9))},  // second instance on the same Monday
		{ID: "tue", Date: ptr(day(2026, 3, 10))}, // not selected
		{ID: "gone", Date: ptr(day(2026, 3, 11)), Deleted: true},
		{ID: "later", Date: ptr(day(2026, 3, 25))}, // beyond generatedUntil
		{ID: "undated"},
	}

	plan := Reconcile(p, existing, day(2026, 3, 5))

	assert.Equal(t, []string{"dup", "tue"}, plan.ToUnlink)
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, day(2026, 3, 16), plan.ToCreate[0].Date)
}

func TestReconcile_HonorsHorizonAndEnd(t *testing.T) {
	p := dailyPattern(day(2026, 3, 1), day(2026, 12, 31))
	p.Rule.End = recurrence.Until(day(2026, 3, 10))

	plan := Reconcile(p, nil, day(2026, 3, 8))
	require.Len(t, plan.ToCreate, 3)
	assert.Equal(t, day(2026, 3, 10), plan.ToCreate[2].Date)

	p.Rule.End = recurrence.Never()
	p.GeneratedUntil = day(2026, 3, 1)
	assert.True(t, Reconcile(p, nil, day(2026, 3, 8)).Empty())
}

func TestReconcile_DeletedPattern(t *testing.T) {
	p := dailyPattern(day(2026, 3, 1), day(2026, 3, 31))
	p.DeletedAt = ptr(day(2026, 3, 2))

	plan := Reconcile(p, []Instance{{ID: "x", Date: ptr(day(2026, 3, 2))}}, day(2026, 3, 1))
	assert.True(t, plan.Empty())
}

func afterCompletionPattern(start time.Time, days int) model.Pattern {
	return model.Pattern{
		ID:             "pat-ac",
		UserID:         "u1",
		Template:       model.Template{Title: "Water plants"},
		Rule:           recurrence.Rule{Type: recurrence.AfterCompletion, Interval: 1, DaysAfterCompletion: days, End: recurrence.Never()},
		StartDate:      start,
		GeneratedUntil: start.AddDate(10, 0, 0),
	}
}

func TestReconcile_AfterCompletionNoActiveInstance(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 3)

	plan := Reconcile(p, nil, day(2026, 3, 5))
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, day(2026, 3, 5), plan.ToCreate[0].Date)
	assert.True(t, plan.ActivateCreated)

	future := afterCompletionPattern(day(2026, 4, 1), 3)
	plan = Reconcile(future, nil, day(2026, 3, 5))
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, day(2026, 4, 1), plan.ToCreate[0].Date)
}

func TestReconcile_AfterCompletionActivePending(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 3)
	p.ActiveInstanceID = "a"

	plan := Reconcile(p, []Instance{{ID: "a", Date: ptr(day(2026, 3, 1)), Status: model.StatusInProgress}}, day(2026, 3, 5))
	assert.True(t, plan.Empty())
}

func TestReconcile_AfterCompletionNextAfterCompletion(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 3)
	p.ActiveInstanceID = "a"
	existing := []Instance{
		{ID: "a", Date: ptr(day(2026, 3, 1)), Status: model.StatusComplete, CompletedAt: ptr(time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC))},
	}

	plan := Reconcile(p, existing, day(2026, 3, 5))
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, day(2026, 3, 7), plan.ToCreate[0].Date)
	assert.True(t, plan.ActivateCreated)

	// completion long ago: the next instance is due today
	plan = Reconcile(p, existing, day(2026, 4, 1))
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, day(2026, 4, 1), plan.ToCreate[0].Date)
}

func TestReconcile_AfterCompletionAdoptsPending(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 3)
	existing := []Instance{
		{ID: "old", Date: ptr(day(2026, 3, 1)), Status: model.StatusComplete},
		{ID: "open", Date: ptr(day(2026, 3, 4)), Status: model.StatusInProgress},
	}

	plan := Reconcile(p, existing, day(2026, 3, 5))
	assert.Empty(t, plan.ToCreate)
	assert.Equal(t, "open", plan.AdoptActiveID)
}

func TestReconcile_AfterCompletionUnlinksExtraPending(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 3)
	p.ActiveInstanceID = "a"
	existing := []Instance{
		{ID: "done", Date: ptr(day(2026, 2, 20)), Status: model.StatusComplete},
		{ID: "b", Date: ptr(day(2026, 3, 2)), Status: model.StatusInProgress},
		{ID: "a", Date: ptr(day(2026, 3, 1)), Status: model.StatusInProgress},
		{ID: "gone", Date: ptr(day(2026, 3, 3)), Status: model.StatusInProgress, Deleted: true},
	}

	plan := Reconcile(p, existing, day(2026, 3, 5))
	assert.Empty(t, plan.ToCreate)
	assert.Empty(t, plan.AdoptActiveID)
	assert.Equal(t, []string{"b"}, plan.ToUnlink)

	// without an active instance the first pending one is adopted
	p.ActiveInstanceID = ""
	plan = Reconcile(p, existing, day(2026, 3, 5))
	assert.Equal(t, "b", plan.AdoptActiveID)
	assert.Equal(t, []string{"a"}, plan.ToUnlink)
}

func TestReconcile_AfterCompletionNeverMoreThanOne(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 1)
	p.GeneratedUntil = day(2036, 1, 1)

	plan := Reconcile(p, nil, day(2026, 3, 1))
	assert.Len(t, plan.ToCreate, 1)

	second := Reconcile(p, apply(nil, plan), day(2026, 3, 1))
	assert.Empty(t, second.ToCreate)
}

func TestReconcile_AfterCompletionEndConditions(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 2)
	p.Rule.End = recurrence.AfterCount(1)
	done := []Instance{{ID: "a", Date: ptr(day(2026, 3, 1)), Status: model.StatusComplete}}
	assert.True(t, Reconcile(p, done, day(2026, 3, 5)).Empty())

	p.Rule.End = recurrence.Until(day(2026, 3, 2))
	assert.True(t, Reconcile(p, done, day(2026, 3, 5)).Empty())
}

func TestReconcile_AfterCompletionSkipsExceptions(t *testing.T) {
	p := afterCompletionPattern(day(2026, 3, 1), 1)
	p.Rule.Exceptions = []time.Time{day(2026, 3, 5), day(2026, 3, 6)}

	plan := Reconcile(p, nil, day(2026, 3, 5))
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, day(2026, 3, 7), plan.ToCreate[0].Date)
}

func TestDraft_Task(t *testing.T) {
	d := Draft{PatternID: "p", UserID: "u", Template: model.Template{Title: "x"}, Date: day(2026, 3, 1)}
	task := d.Task()
	assert.Equal(t, model.StatusInProgress, task.Status)
	assert.Equal(t, "p", task.RecurringPatternID)
	assert.Equal(t, day(2026, 3, 1), *task.ScheduledDate)
	assert.Empty(t, task.RecurringParentID)
}
