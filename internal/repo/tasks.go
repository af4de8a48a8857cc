package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// Tasks reads and writes task documents.
type Tasks struct {
	docs DocumentStore
	loc  *time.Location
}

// NewTasks returns a task adapter. Calendar dates are interpreted in loc.
func NewTasks(docs DocumentStore, loc *time.Location) *Tasks {
	if loc == nil {
		loc = time.Local
	}
	return &Tasks{docs: docs, loc: loc}
}

// Get loads one task.
func (t *Tasks) Get(ctx context.Context, id string) (model.Task, error) {
	doc, err := t.docs.Get(ctx, model.CollectionTasks, id)
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(doc, t.loc)
}

// ListLegacyParents finds non-deleted tasks that embed a legacy recurrence and
// are not instances themselves. An empty userID means every user. Tasks that
// already carry a migratedToPatternId are skipped.
func (t *Tasks) ListLegacyParents(ctx context.Context, userID string) ([]Loaded[model.Task], error) {
	filters := []store.Filter{store.IsNull("deletedAt"), store.NotNull("recurrence")}
	if userID != "" {
		filters = append(filters, store.Eq("userId", userID))
	}
	docs, err := t.docs.Query(ctx, model.CollectionTasks, filters...)
	if err != nil {
		return nil, fmt.Errorf("list legacy parents: %w", err)
	}

	var out []Loaded[model.Task]
	for _, doc := range docs {
		if doc.Has("recurringParentId") || doc.Bool("isRecurringInstance") || doc.Has("migratedToPatternId") {
			continue
		}
		task, err := decodeTask(doc, t.loc)
		out = append(out, Loaded[model.Task]{ID: doc.ID, UserID: doc.String("userId"), Value: task, Err: err})
	}
	return out, nil
}

// ListLegacyInstances returns the non-deleted instances that point at a legacy
// parent through recurringParentId.
func (t *Tasks) ListLegacyInstances(ctx context.Context, parentID string) ([]model.Task, error) {
	docs, err := t.docs.Query(ctx, model.CollectionTasks,
		store.Eq("recurringParentId", parentID), store.IsNull("deletedAt"))
	if err != nil {
		return nil, fmt.Errorf("list instances of %s: %w", parentID, err)
	}
	return decodeTasks(docs, t.loc)
}

// ListPatternInstances returns every instance linked to a pattern, deleted
// ones included.
func (t *Tasks) ListPatternInstances(ctx context.Context, patternID string) ([]model.Task, error) {
	docs, err := t.docs.Query(ctx, model.CollectionTasks, store.Eq("recurringPatternId", patternID))
	if err != nil {
		return nil, fmt.Errorf("list instances of pattern %s: %w", patternID, err)
	}
	return decodeTasks(docs, t.loc)
}

// CreateInstance adds a new task document and returns its id.
func (t *Tasks) CreateInstance(ctx context.Context, task model.Task, now time.Time) (string, error) {
	fields := encodeTask(task)
	fields["createdAt"] = now
	fields["updatedAt"] = now
	id, err := t.docs.Add(ctx, model.CollectionTasks, fields)
	if err != nil {
		return "", fmt.Errorf("create instance: %w", err)
	}
	return id, nil
}

// MarkMigrated records the pattern a legacy parent was migrated to and
// soft-deletes the parent.
func (t *Tasks) MarkMigrated(ctx context.Context, taskID, patternID string, now time.Time) error {
	err := t.docs.Update(ctx, model.CollectionTasks, taskID, map[string]any{
		"migratedToPatternId": patternID,
		"deletedAt":           now,
		"updatedAt":           now,
	})
	if err != nil {
		return fmt.Errorf("mark %s migrated: %w", taskID, err)
	}
	return nil
}

// LinkMutation points an instance at a pattern and clears the legacy
// parent-link fields.
func LinkMutation(instanceID, patternID string, now time.Time) store.Mutation {
	return store.Mutation{
		Collection: model.CollectionTasks,
		ID:         instanceID,
		Fields: map[string]any{
			"recurringPatternId":  patternID,
			"recurringParentId":   nil,
			"isRecurringInstance": nil,
			"updatedAt":           now,
		},
	}
}

// UnlinkMutation detaches an instance from its pattern. The task itself is
// kept.
func UnlinkMutation(instanceID string, now time.Time) store.Mutation {
	return store.Mutation{
		Collection: model.CollectionTasks,
		ID:         instanceID,
		Fields: map[string]any{
			"recurringPatternId": nil,
			"updatedAt":          now,
		},
	}
}

// CommitChunked commits muts in sequential batches of at most size
// mutations and returns the number of batches committed. Each batch is
// atomic; an error leaves earlier batches applied.
func CommitChunked(ctx context.Context, docs DocumentStore, muts []store.Mutation, size int) (int, error) {
	if size <= 0 || size > store.MaxBatchOps {
		size = store.MaxBatchOps
	}
	batches := 0
	for start := 0; start < len(muts); start += size {
		end := min(start+size, len(muts))
		if err := docs.CommitBatch(ctx, muts[start:end]); err != nil {
			return batches, fmt.Errorf("batch %d (%d-%d): %w", batches+1, start, end-1, err)
		}
		batches++
	}
	return batches, nil
}

func decodeTasks(docs []store.Document, loc *time.Location) ([]model.Task, error) {
	out := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := decodeTask(doc, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}

func decodeTask(doc store.Document, loc *time.Location) (model.Task, error) {
	task := model.Task{
		ID:                  doc.ID,
		UserID:              doc.String("userId"),
		Status:              model.TaskStatus(doc.String("status")),
		Recurrence:          doc.Map("recurrence"),
		RecurringParentID:   doc.String("recurringParentId"),
		IsRecurringInstance: doc.Bool("isRecurringInstance"),
		RecurringPatternID:  doc.String("recurringPatternId"),
		MigratedToPatternID: doc.String("migratedToPatternId"),
	}

	tmpl, err := decodeTemplate(doc)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", doc.ID, err)
	}
	task.Template = tmpl

	if task.ScheduledDate, err = dateField(doc, "scheduledDate", loc); err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", doc.ID, err)
	}
	if task.CompletedAt, err = timeField(doc, "completedAt", loc); err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", doc.ID, err)
	}
	if task.DeletedAt, err = timeField(doc, "deletedAt", loc); err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", doc.ID, err)
	}
	return task, nil
}

func encodeTask(t model.Task) map[string]any {
	fields := encodeTemplate(t.Template)
	fields["userId"] = t.UserID
	fields["status"] = string(t.Status)
	fields["scheduledDate"] = dateValue(t.ScheduledDate)
	fields["completedAt"] = timeValue(t.CompletedAt)
	fields["deletedAt"] = timeValue(t.DeletedAt)
	fields["recurringPatternId"] = stringValue(t.RecurringPatternID)
	fields["recurringParentId"] = stringValue(t.RecurringParentID)
	if t.IsRecurringInstance {
		fields["isRecurringInstance"] = true
	}
	if t.Recurrence != nil {
		fields["recurrence"] = t.Recurrence
	}
	return fields
}

func decodeTemplate(doc store.Document) (model.Template, error) {
	duration, err := doc.Int("duration")
	if err != nil {
		return model.Template{}, fmt.Errorf("field duration: %w", err)
	}
	return model.Template{
		Title:           doc.String("title"),
		Description:     doc.String("description"),
		CategoryID:      doc.String("categoryId"),
		Priority:        doc.String("priority"),
		StartTime:       doc.String("startTime"),
		DurationMinutes: duration,
	}, nil
}

func encodeTemplate(t model.Template) map[string]any {
	fields := map[string]any{
		"title":       t.Title,
		"description": stringValue(t.Description),
		"categoryId":  stringValue(t.CategoryID),
		"priority":    stringValue(t.Priority),
		"startTime":   stringValue(t.StartTime),
	}
	if t.DurationMinutes > 0 {
		fields["duration"] = t.DurationMinutes
	}
	return fields
}
