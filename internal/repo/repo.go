// Package repo maps planner entities onto the document store.
//
// Tasks and patterns are stored as camelCase JSON documents. Calendar dates
// are "YYYY-MM-DD" strings; timestamps are RFC 3339. A pattern's recurrence
// rule is flattened into the pattern document in the same shape legacy tasks
// embed under "recurrence", and is decoded through legacy.Validator.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// DocumentStore is the persistence boundary the planner core depends on.
// *store.Store satisfies it.
type DocumentStore interface {
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (store.Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Query(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error)
	CommitBatch(ctx context.Context, muts []store.Mutation) error
}

var _ DocumentStore = (*store.Store)(nil)

// Loaded is one decoded document. Err is set when the document could not be
// decoded; ID and UserID are always populated.
type Loaded[T any] struct {
	ID     string
	UserID string
	Value  T
	Err    error
}

func dateField(doc store.Document, key string, loc *time.Location) (*time.Time, error) {
	raw := doc.String(key)
	if raw == "" {
		return nil, nil
	}
	d, err := recurrence.ParseDate(raw, loc)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", key, err)
	}
	return &d, nil
}

func timeField(doc store.Document, key string, loc *time.Location) (*time.Time, error) {
	raw := doc.String(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// date-only values from older clients
		d, derr := recurrence.ParseDate(raw, loc)
		if derr != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		return &d, nil
	}
	t = t.In(loc)
	return &t, nil
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return recurrence.FormatDate(*t)
}

func timeValue(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func stringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}
