// Package legacy validates the recurrence object embedded on legacy tasks and
// converts it into a recurrence.Rule.
//
// Legacy documents are loosely typed. They are checked against an embedded
// CUE schema (recurrence.cue) so that nothing optional or unknown leaks past
// this boundary.
package legacy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

//go:embed recurrence.cue
var schemaCUE string

// ParseError reports a legacy recurrence that does not match the schema.
type ParseError struct {
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() && e.Pos.Line() > 0 {
		return fmt.Sprintf("invalid legacy recurrence (line %d): %s", e.Pos.Line(), e.Message)
	}
	return "invalid legacy recurrence: " + e.Message
}

// shape mirrors #Recurrence for decoding.
type shape struct {
	Type                 string        `json:"type"`
	Interval             *int          `json:"interval"`
	DaysOfWeek           []int         `json:"daysOfWeek"`
	DayOfMonth           *int          `json:"dayOfMonth"`
	MonthOfYear          *int          `json:"monthOfYear"`
	NthWeekday           *nthWeekday   `json:"nthWeekday"`
	SpecificDatesOfMonth []int         `json:"specificDatesOfMonth"`
	DaysAfterCompletion  *int          `json:"daysAfterCompletion"`
	EndCondition         *endCondition `json:"endCondition"`
	Exceptions           []string      `json:"exceptions"`
}

type nthWeekday struct {
	N       int `json:"n"`
	Weekday int `json:"weekday"`
}

type endCondition struct {
	Type           string `json:"type"`
	EndDate        string `json:"endDate"`
	MaxOccurrences int    `json:"maxOccurrences"`
}

// Validator checks legacy recurrence records. It is safe for concurrent use.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("recurrence.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile recurrence schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Recurrence"))
	if !def.Exists() {
		return nil, fmt.Errorf("compile recurrence schema: #Recurrence not found")
	}
	return &Validator{ctx: ctx, schema: def}, nil
}

// Parse validates raw and converts it into a Rule. Dates are interpreted in
// loc.
func (v *Validator) Parse(raw map[string]any, loc *time.Location) (recurrence.Rule, error) {
	if raw == nil {
		return recurrence.Rule{}, &ParseError{Message: "recurrence is missing"}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return recurrence.Rule{}, &ParseError{Message: err.Error()}
	}

	var s shape
	if err := v.check(data, &s); err != nil {
		return recurrence.Rule{}, err
	}
	return s.rule(loc)
}

func (v *Validator) check(data []byte, out *shape) error {
	// cue.Context is not safe for concurrent use
	v.mu.Lock()
	defer v.mu.Unlock()

	doc := v.ctx.CompileBytes(data, cue.Filename("recurrence.json"))
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}
	unified := v.schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	if err := unified.Decode(out); err != nil {
		return formatCUEError(err)
	}
	return nil
}

func (s shape) rule(loc *time.Location) (recurrence.Rule, error) {
	r := recurrence.Rule{
		Type:     recurrence.Type(s.Type),
		Interval: 1,
		End:      recurrence.Never(),
	}
	if s.Interval != nil {
		r.Interval = *s.Interval
	}
	for _, d := range s.DaysOfWeek {
		r.DaysOfWeek = append(r.DaysOfWeek, time.Weekday(d))
	}
	if s.DayOfMonth != nil {
		r.DayOfMonth = *s.DayOfMonth
	}
	if s.MonthOfYear != nil {
		r.MonthOfYear = time.Month(*s.MonthOfYear)
	}
	if s.NthWeekday != nil {
		r.NthWeekday = &recurrence.NthWeekday{N: s.NthWeekday.N, Weekday: time.Weekday(s.NthWeekday.Weekday)}
	}
	r.SpecificDatesOfMonth = append(r.SpecificDatesOfMonth, s.SpecificDatesOfMonth...)
	if s.DaysAfterCompletion != nil {
		r.DaysAfterCompletion = *s.DaysAfterCompletion
	}

	if ec := s.EndCondition; ec != nil {
		switch ec.Type {
		case "date":
			d, err := recurrence.ParseDate(ec.EndDate, loc)
			if err != nil {
				return recurrence.Rule{}, &ParseError{Message: "endCondition.endDate: " + err.Error()}
			}
			r.End = recurrence.Until(d)
		case "occurrences":
			r.End = recurrence.AfterCount(ec.MaxOccurrences)
		}
	}

	for _, raw := range s.Exceptions {
		d, err := recurrence.ParseDate(raw, loc)
		if err != nil {
			return recurrence.Rule{}, &ParseError{Message: "exceptions: " + err.Error()}
		}
		r.Exceptions = append(r.Exceptions, d)
	}

	if err := r.Validate(); err != nil {
		return recurrence.Rule{}, &ParseError{Message: err.Error()}
	}
	return r, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{Message: err.Error()}
	}
	first := errs[0]
	pe := &ParseError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}
