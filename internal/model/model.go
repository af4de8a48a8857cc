// Package model holds the planner's persisted entities as seen by the
// recurrence core: tasks (legacy parents and materialized instances) and
// recurring patterns.
//
// model imports only the recurrence package; document encoding lives in
// package repo.
package model

import (
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

// Collection names in the document store.
const (
	CollectionTasks    = "tasks"
	CollectionPatterns = "recurringPatterns"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusInProgress TaskStatus = "in_progress"
	StatusComplete   TaskStatus = "complete"
	StatusForward    TaskStatus = "forward"
	StatusDelete     TaskStatus = "delete"
)

// Template is the set of task fields a pattern copies onto every instance.
type Template struct {
	Title           string
	Description     string
	CategoryID      string
	Priority        string
	StartTime       string // "HH:MM", empty for all-day
	DurationMinutes int
}

// Task is a task document. A task is one of: a plain task, a legacy recurring
// parent (Recurrence set), a legacy instance (RecurringParentID set) or a
// pattern instance (RecurringPatternID set).
type Task struct {
	ID     string
	UserID string
	Template

	ScheduledDate *time.Time
	Status        TaskStatus
	CompletedAt   *time.Time
	DeletedAt     *time.Time

	// Legacy embedded recurrence. Loosely typed until validated by package
	// legacy.
	Recurrence          map[string]any
	RecurringParentID   string
	IsRecurringInstance bool

	RecurringPatternID  string
	MigratedToPatternID string
}

// IsDeleted reports whether the task is soft-deleted.
func (t Task) IsDeleted() bool { return t.DeletedAt != nil }

// IsComplete reports whether the task has been completed.
func (t Task) IsComplete() bool { return t.Status == StatusComplete }

// IsLegacyParent reports whether the task carries an embedded recurrence and
// is not itself an instance.
func (t Task) IsLegacyParent() bool {
	return t.Recurrence != nil && t.RecurringParentID == "" && !t.IsRecurringInstance
}

// Pattern is the normalized, persisted form of a recurrence.
type Pattern struct {
	ID     string
	UserID string
	Template
	Rule recurrence.Rule

	// StartDate is the anchor, normalized to midnight.
	StartDate time.Time
	// GeneratedUntil is the inclusive high-water mark of materialization.
	GeneratedUntil time.Time
	// ActiveInstanceID is the single pending instance of an afterCompletion
	// pattern.
	ActiveInstanceID string

	DeletedAt          *time.Time
	MigratedFromTaskID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDeleted reports whether the pattern is soft-deleted.
func (p Pattern) IsDeleted() bool { return p.DeletedAt != nil }
