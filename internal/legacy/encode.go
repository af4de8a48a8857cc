package legacy

import (
	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

// Encode renders a rule in the same shape Parse accepts. Pattern documents
// store their rule fields flattened in this shape, so patterns and legacy
// tasks share one schema.
func Encode(r recurrence.Rule) map[string]any {
	out := map[string]any{
		"type": string(r.Type),
	}
	if r.Type != recurrence.AfterCompletion {
		out["interval"] = r.Interval
	}
	if len(r.DaysOfWeek) > 0 {
		days := make([]any, len(r.DaysOfWeek))
		for i, d := range r.DaysOfWeek {
			days[i] = int(d)
		}
		out["daysOfWeek"] = days
	}
	if r.DayOfMonth > 0 {
		out["dayOfMonth"] = r.DayOfMonth
	}
	if r.MonthOfYear > 0 {
		out["monthOfYear"] = int(r.MonthOfYear)
	}
	if r.NthWeekday != nil {
		out["nthWeekday"] = map[string]any{"n": r.NthWeekday.N, "weekday": int(r.NthWeekday.Weekday)}
	}
	if len(r.SpecificDatesOfMonth) > 0 {
		dates := make([]any, len(r.SpecificDatesOfMonth))
		for i, d := range r.SpecificDatesOfMonth {
			dates[i] = d
		}
		out["specificDatesOfMonth"] = dates
	}
	if r.Type == recurrence.AfterCompletion {
		out["daysAfterCompletion"] = r.DaysAfterCompletion
	}

	switch r.End.Kind {
	case recurrence.EndAfterDate:
		out["endCondition"] = map[string]any{"type": "date", "endDate": recurrence.FormatDate(r.End.Date)}
	case recurrence.EndAfterCount:
		out["endCondition"] = map[string]any{"type": "occurrences", "maxOccurrences": r.End.Count}
	default:
		out["endCondition"] = map[string]any{"type": "never"}
	}

	if len(r.Exceptions) > 0 {
		ex := make([]any, len(r.Exceptions))
		for i, d := range r.Exceptions {
			ex[i] = recurrence.FormatDate(d)
		}
		out["exceptions"] = ex
	}
	return out
}

// RuleFields lists the keys Encode may emit.
var RuleFields = []string{
	"type", "interval", "daysOfWeek", "dayOfMonth", "monthOfYear", "nthWeekday",
	"specificDatesOfMonth", "daysAfterCompletion", "endCondition", "exceptions",
}
