package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Op is a filter comparison.
type Op string

const (
	OpEq      Op = "=="
	OpIsNull  Op = "isNull"
	OpNotNull Op = "notNull"
	OpGte     Op = ">="
	OpLte     Op = "<="
)

// Filter restricts a query on one top-level field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter { return Filter{Field: field, Op: OpEq, Value: value} }

// IsNull matches documents where the field is absent or null.
func IsNull(field string) Filter { return Filter{Field: field, Op: OpIsNull} }

// NotNull matches documents where the field is present and non-null.
func NotNull(field string) Filter { return Filter{Field: field, Op: OpNotNull} }

// Gte matches documents whose field is >= value.
func Gte(field string, value any) Filter { return Filter{Field: field, Op: OpGte, Value: value} }

// Lte matches documents whose field is <= value.
func Lte(field string, value any) Filter { return Filter{Field: field, Op: OpLte, Value: value} }

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Get retrieves a single document by id.
// Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	fields, err := unmarshalDocument(data)
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{Collection: collection, ID: id, Fields: fields}, nil
}

// Query returns all documents in collection matching every filter.
// Results are ordered by insertion: ORDER BY seq ASC, id ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	query := `SELECT id, data FROM documents WHERE collection = ?` + where +
		` ORDER BY seq ASC, id COLLATE BINARY ASC`
	rows, err := s.db.QueryContext(ctx, query, append([]any{collection}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		fields, err := unmarshalDocument(data)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, id, err)
		}
		docs = append(docs, Document{Collection: collection, ID: id, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	return docs, nil
}

func buildWhere(filters []Filter) (string, []any, error) {
	var b strings.Builder
	var args []any

	for _, f := range filters {
		if !fieldName.MatchString(f.Field) {
			return "", nil, fmt.Errorf("invalid field name %q", f.Field)
		}
		expr := fmt.Sprintf("json_extract(data, '$.%s')", f.Field)

		switch f.Op {
		case OpIsNull:
			b.WriteString(" AND " + expr + " IS NULL")
		case OpNotNull:
			b.WriteString(" AND " + expr + " IS NOT NULL")
		case OpEq, OpGte, OpLte:
			v, err := sqlValue(f.Value)
			if err != nil {
				return "", nil, fmt.Errorf("field %s: %w", f.Field, err)
			}
			op := "="
			if f.Op != OpEq {
				op = string(f.Op)
			}
			b.WriteString(fmt.Sprintf(" AND %s %s ?", expr, op))
			args = append(args, v)
		default:
			return "", nil, fmt.Errorf("unknown operator %q", f.Op)
		}
	}

	return b.String(), args, nil
}

// sqlValue converts a filter value into what json_extract yields for it.
func sqlValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		// json_extract returns 1/0 for JSON booleans
		if val {
			return 1, nil
		}
		return 0, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("unsupported filter value %T", v)
	}
}
