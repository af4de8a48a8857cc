package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// Patterns is the pattern store adapter.
type Patterns struct {
	docs  DocumentStore
	rules *legacy.Validator
	loc   *time.Location
}

// NewPatterns returns a pattern adapter. Rule fields are decoded through
// rules; dates are interpreted in loc.
func NewPatterns(docs DocumentStore, rules *legacy.Validator, loc *time.Location) *Patterns {
	if loc == nil {
		loc = time.Local
	}
	return &Patterns{docs: docs, rules: rules, loc: loc}
}

// PatternUpdate is a partial update. Nil fields are left unchanged.
type PatternUpdate struct {
	GeneratedUntil   *time.Time
	ActiveInstanceID *string
}

// Create stores a new pattern and returns its id. p.ID is ignored.
func (p *Patterns) Create(ctx context.Context, pat model.Pattern) (string, error) {
	id, err := p.docs.Add(ctx, model.CollectionPatterns, encodePattern(pat))
	if err != nil {
		return "", fmt.Errorf("create pattern: %w", err)
	}
	return id, nil
}

// Get loads one pattern.
func (p *Patterns) Get(ctx context.Context, id string) (model.Pattern, error) {
	doc, err := p.docs.Get(ctx, model.CollectionPatterns, id)
	if err != nil {
		return model.Pattern{}, err
	}
	return p.decode(doc)
}

// FindByLegacyTask returns the non-deleted pattern migrated from taskID, if
// any. The oldest match wins.
func (p *Patterns) FindByLegacyTask(ctx context.Context, taskID string) (model.Pattern, bool, error) {
	docs, err := p.docs.Query(ctx, model.CollectionPatterns,
		store.Eq("migratedFromTaskId", taskID), store.IsNull("deletedAt"))
	if err != nil {
		return model.Pattern{}, false, fmt.Errorf("find pattern for task %s: %w", taskID, err)
	}
	if len(docs) == 0 {
		return model.Pattern{}, false, nil
	}
	pat, err := p.decode(docs[0])
	if err != nil {
		return model.Pattern{}, false, err
	}
	return pat, true, nil
}

// ListActive returns every non-deleted pattern, optionally for one user.
// Patterns that fail to decode are returned with Err set.
func (p *Patterns) ListActive(ctx context.Context, userID string) ([]Loaded[model.Pattern], error) {
	filters := []store.Filter{store.IsNull("deletedAt")}
	if userID != "" {
		filters = append(filters, store.Eq("userId", userID))
	}
	docs, err := p.docs.Query(ctx, model.CollectionPatterns, filters...)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}

	out := make([]Loaded[model.Pattern], 0, len(docs))
	for _, doc := range docs {
		pat, err := p.decode(doc)
		out = append(out, Loaded[model.Pattern]{ID: doc.ID, UserID: doc.String("userId"), Value: pat, Err: err})
	}
	return out, nil
}

// Update applies u to pattern id.
func (p *Patterns) Update(ctx context.Context, id string, u PatternUpdate, now time.Time) error {
	fields := map[string]any{"updatedAt": now}
	if u.GeneratedUntil != nil {
		fields["generatedUntil"] = dateValue(u.GeneratedUntil)
	}
	if u.ActiveInstanceID != nil {
		fields["activeInstanceId"] = stringValue(*u.ActiveInstanceID)
	}
	if err := p.docs.Update(ctx, model.CollectionPatterns, id, fields); err != nil {
		return fmt.Errorf("update pattern %s: %w", id, err)
	}
	return nil
}

// SoftDelete marks a pattern deleted. A deleted pattern generates nothing.
func (p *Patterns) SoftDelete(ctx context.Context, id string, now time.Time) error {
	err := p.docs.Update(ctx, model.CollectionPatterns, id, map[string]any{
		"deletedAt": now,
		"updatedAt": now,
	})
	if err != nil {
		return fmt.Errorf("delete pattern %s: %w", id, err)
	}
	return nil
}

func encodePattern(p model.Pattern) map[string]any {
	fields := encodeTemplate(p.Template)
	for k, v := range legacy.Encode(p.Rule) {
		fields[k] = v
	}
	fields["userId"] = p.UserID
	fields["startDate"] = dateValue(&p.StartDate)
	fields["generatedUntil"] = dateValue(&p.GeneratedUntil)
	fields["activeInstanceId"] = stringValue(p.ActiveInstanceID)
	fields["deletedAt"] = timeValue(p.DeletedAt)
	fields["migratedFromTaskId"] = stringValue(p.MigratedFromTaskID)
	fields["createdAt"] = timeValue(&p.CreatedAt)
	fields["updatedAt"] = timeValue(&p.UpdatedAt)
	return fields
}

func (p *Patterns) decode(doc store.Document) (model.Pattern, error) {
	wrap := func(err error) error { return fmt.Errorf("pattern %s: %w", doc.ID, err) }

	raw := make(map[string]any, len(legacy.RuleFields))
	for _, k := range legacy.RuleFields {
		if doc.Has(k) {
			raw[k] = doc.Fields[k]
		}
	}
	rule, err := p.rules.Parse(raw, p.loc)
	if err != nil {
		return model.Pattern{}, wrap(err)
	}

	tmpl, err := decodeTemplate(doc)
	if err != nil {
		return model.Pattern{}, wrap(err)
	}

	pat := model.Pattern{
		ID:                 doc.ID,
		UserID:             doc.String("userId"),
		Template:           tmpl,
		Rule:               rule,
		ActiveInstanceID:   doc.String("activeInstanceId"),
		MigratedFromTaskID: doc.String("migratedFromTaskId"),
	}

	start, err := dateField(doc, "startDate", p.loc)
	if err != nil {
		return model.Pattern{}, wrap(err)
	}
	until, err := dateField(doc, "generatedUntil", p.loc)
	if err != nil {
		return model.Pattern{}, wrap(err)
	}
	if start == nil || until == nil {
		return model.Pattern{}, wrap(errors.New("startDate and generatedUntil are required"))
	}
	pat.StartDate, pat.GeneratedUntil = *start, *until

	if pat.DeletedAt, err = timeField(doc, "deletedAt", p.loc); err != nil {
		return model.Pattern{}, wrap(err)
	}
	if t, err := timeField(doc, "createdAt", p.loc); err != nil {
		return model.Pattern{}, wrap(err)
	} else if t != nil {
		pat.CreatedAt = *t
	}
	if t, err := timeField(doc, "updatedAt", p.loc); err != nil {
		return model.Pattern{}, wrap(err)
	} else if t != nil {
		pat.UpdatedAt = *t
	}
	return pat, nil
}
