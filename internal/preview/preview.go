// Package preview lists the dates a recurrence selects without touching the
// store.
package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

// MaxWindowDays bounds a preview window.
const MaxWindowDays = 3660

// Request describes one preview. Rule is a recurrence object in the legacy
// JSON shape; dates are YYYY-MM-DD. Empty From defaults to Anchor.
type Request struct {
	Rule   string
	Anchor string
	From   string
	To     string
}

// Result is the preview output.
type Result struct {
	Type  recurrence.Type `json:"type"`
	From  string          `json:"from"`
	To    string          `json:"to"`
	Dates []string        `json:"dates"`
}

// Occurrences validates req and generates its dates in loc.
func Occurrences(rules *legacy.Validator, req Request, loc *time.Location) (*Result, error) {
	raw, err := decodeRule(req.Rule)
	if err != nil {
		return nil, err
	}
	rule, err := rules.Parse(raw, loc)
	if err != nil {
		return nil, err
	}

	anchor, err := recurrence.ParseDate(req.Anchor, loc)
	if err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	from := anchor
	if req.From != "" {
		if from, err = recurrence.ParseDate(req.From, loc); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	}
	to, err := recurrence.ParseDate(req.To, loc)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if to.Before(from) {
		return nil, errors.New("to is before from")
	}
	if to.Sub(from) > MaxWindowDays*24*time.Hour {
		return nil, fmt.Errorf("window exceeds %d days", MaxWindowDays)
	}

	res := &Result{Type: rule.Type, From: recurrence.FormatDate(from), To: recurrence.FormatDate(to), Dates: []string{}}
	for _, d := range recurrence.Generate(rule, anchor, from, to) {
		res.Dates = append(res.Dates, recurrence.FormatDate(d))
	}
	return res, nil
}

func decodeRule(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("rule: %w", err)
	}
	return raw, nil
}
