package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Type identifies the cadence of a rule.
type Type string

const (
	Daily           Type = "daily"
	Weekly          Type = "weekly"
	Monthly         Type = "monthly"
	Yearly          Type = "yearly"
	AfterCompletion Type = "afterCompletion"
)

// Valid reports whether t is a known rule type.
func (t Type) Valid() bool {
	switch t {
	case Daily, Weekly, Monthly, Yearly, AfterCompletion:
		return true
	}
	return false
}

// EndKind tags the variant held by an EndCondition.
type EndKind string

const (
	EndNever      EndKind = "never"
	EndAfterDate  EndKind = "afterDate"
	EndAfterCount EndKind = "afterCount"
)

// EndCondition terminates a rule. Exactly one of Date or Count is meaningful,
// selected by Kind.
type EndCondition struct {
	Kind  EndKind
	Date  time.Time // EndAfterDate, inclusive
	Count int       // EndAfterCount
}

// Never returns an end condition that never terminates.
func Never() EndCondition { return EndCondition{Kind: EndNever} }

// Until returns an end condition bounded by an inclusive last date.
func Until(date time.Time) EndCondition {
	return EndCondition{Kind: EndAfterDate, Date: Midnight(date)}
}

// AfterCount returns an end condition that stops after n occurrences.
func AfterCount(n int) EndCondition { return EndCondition{Kind: EndAfterCount, Count: n} }

// NthWeekday selects the Nth weekday of a month. N is 1..5, or -1 for the last
// one.
type NthWeekday struct {
	N       int
	Weekday time.Weekday
}

// Rule is a fully validated recurrence rule. Loosely typed legacy data is
// converted into a Rule at the migration boundary (see package legacy); the
// generator only ever sees this type.
type Rule struct {
	Type     Type
	Interval int

	// DaysOfWeek is used by Weekly only. Empty means the anchor's weekday.
	DaysOfWeek []time.Weekday

	// Monthly and yearly refinements. Zero values mean "unset".
	DayOfMonth           int
	MonthOfYear          time.Month
	NthWeekday           *NthWeekday
	SpecificDatesOfMonth []int

	// DaysAfterCompletion is used by AfterCompletion only.
	DaysAfterCompletion int

	End        EndCondition
	Exceptions []time.Time
}

// Validate checks field ranges. It does not normalize.
func (r Rule) Validate() error {
	var errs []error

	if !r.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown type %q", r.Type))
	}
	if r.Type != AfterCompletion && r.Interval < 1 {
		errs = append(errs, fmt.Errorf("interval must be >= 1, got %d", r.Interval))
	}
	for _, wd := range r.DaysOfWeek {
		if wd < time.Sunday || wd > time.Saturday {
			errs = append(errs, fmt.Errorf("day of week out of range: %d", wd))
		}
	}
	if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
		errs = append(errs, fmt.Errorf("dayOfMonth out of range: %d", r.DayOfMonth))
	}
	if r.MonthOfYear < 0 || r.MonthOfYear > time.December {
		errs = append(errs, fmt.Errorf("monthOfYear out of range: %d", r.MonthOfYear))
	}
	if r.NthWeekday != nil {
		n := r.NthWeekday.N
		if n != -1 && (n < 1 || n > 5) {
			errs = append(errs, fmt.Errorf("nthWeekday.n must be 1..5 or -1, got %d", n))
		}
		if r.NthWeekday.Weekday < time.Sunday || r.NthWeekday.Weekday > time.Saturday {
			errs = append(errs, fmt.Errorf("nthWeekday.weekday out of range: %d", r.NthWeekday.Weekday))
		}
	}
	for _, d := range r.SpecificDatesOfMonth {
		if d < 1 || d > 31 {
			errs = append(errs, fmt.Errorf("specificDatesOfMonth entry out of range: %d", d))
		}
	}
	if r.DaysAfterCompletion < 0 {
		errs = append(errs, fmt.Errorf("daysAfterCompletion must be >= 0, got %d", r.DaysAfterCompletion))
	}

	switch r.End.Kind {
	case EndNever, "":
	case EndAfterDate:
		if r.End.Date.IsZero() {
			errs = append(errs, errors.New("endCondition afterDate requires a date"))
		}
	case EndAfterCount:
		if r.End.Count < 1 {
			errs = append(errs, fmt.Errorf("endCondition afterCount must be >= 1, got %d", r.End.Count))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown endCondition %q", r.End.Kind))
	}

	return errors.Join(errs...)
}

// IsException reports whether d is explicitly excluded by the rule.
func (r Rule) IsException(d time.Time) bool {
	key := FormatDate(d)
	for _, ex := range r.Exceptions {
		if FormatDate(ex) == key {
			return true
		}
	}
	return false
}
