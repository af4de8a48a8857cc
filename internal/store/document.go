package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is one stored JSON object.
type Document struct {
	Collection string
	ID         string
	Fields     map[string]any
}

// Has reports whether the field is present and non-null.
func (d Document) Has(key string) bool {
	v, ok := d.Fields[key]
	return ok && v != nil
}

// String returns a string field, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Bool returns a boolean field, false when absent.
func (d Document) Bool(key string) bool {
	b, _ := d.Fields[key].(bool)
	return b
}

// Int returns an integer field. Absent fields yield 0; non-integers are an
// error.
func (d Document) Int(key string) (int, error) {
	return toInt(d.Fields[key])
}

// Map returns an object field, or nil.
func (d Document) Map(key string) map[string]any {
	m, _ := d.Fields[key].(map[string]any)
	return m
}

// Slice returns an array field, or nil.
func (d Document) Slice(key string) []any {
	s, _ := d.Fields[key].([]any)
	return s
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("not an integer: %s", n)
		}
		return int(i), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

// ToInt converts a decoded JSON number into an int.
func ToInt(v any) (int, error) { return toInt(v) }

// merge applies a partial update: non-nil values overwrite, nil values remove.
func merge(dst, patch map[string]any) {
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}
