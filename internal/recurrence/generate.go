package recurrence

import (
	"slices"
	"time"
)

// Generate returns the dates selected by rule inside [rangeStart, rangeEnd],
// in ascending order and without duplicates.
//
// The anchor is the pattern's start date. All inputs are truncated to
// midnight in the anchor's location. Dates after the rule's end condition and
// dates listed in rule.Exceptions are never returned.
//
// AfterCompletion rules do not iterate: the result holds at most one date, the
// later of rangeStart and anchor.
func Generate(rule Rule, anchor, rangeStart, rangeEnd time.Time) []time.Time {
	loc := anchor.Location()
	anchor = Midnight(anchor)
	start := Midnight(rangeStart.In(loc))
	limit := Midnight(rangeEnd.In(loc))

	if rule.End.Kind == EndAfterDate {
		if until := Midnight(rule.End.Date.In(loc)); until.Before(limit) {
			limit = until
		}
	}

	var out []time.Time

	if rule.Type == AfterCompletion {
		d := start
		if anchor.After(d) {
			d = anchor
		}
		if !d.After(limit) && !rule.IsException(d) {
			out = append(out, d)
		}
		return out
	}

	if limit.Before(start) || limit.Before(anchor) {
		return nil
	}

	counted := 0
	walk(rule, anchor, start, limit, func(d time.Time) bool {
		counted++
		if !d.Before(start) && !rule.IsException(d) {
			out = append(out, d)
		}
		return rule.End.Kind != EndAfterCount || counted < rule.End.Count
	})
	return out
}

// walk yields every date the rule selects from the anchor up to limit, in
// ascending order, until yield returns false. When the rule has no count
// bound, dates before start may be skipped.
func walk(rule Rule, anchor, start, limit time.Time, yield func(time.Time) bool) {
	skipToStart := rule.End.Kind != EndAfterCount && start.After(anchor)
	interval := max(rule.Interval, 1)

	switch rule.Type {
	case Daily:
		i := 0
		if skipToStart {
			// first aligned step on or after start
			i = (daysBetween(anchor, start) + interval - 1) / interval
		}
		for ; ; i++ {
			d := anchor.AddDate(0, 0, i*interval)
			if d.After(limit) || !yield(d) {
				return
			}
		}

	case Weekly:
		d := anchor
		if skipToStart {
			d = start
		}
		for ; !d.After(limit); d = d.AddDate(0, 0, 1) {
			if weeklyMatch(rule, anchor, d) && !yield(d) {
				return
			}
		}

	case Monthly:
		for p := 0; ; p++ {
			first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location()).AddDate(0, p*interval, 0)
			if first.After(limit) {
				return
			}
			for _, d := range monthlyCandidates(rule, anchor, first.Year(), first.Month()) {
				if d.Before(anchor) {
					continue
				}
				if d.After(limit) || !yield(d) {
					return
				}
			}
		}

	case Yearly:
		month := anchor.Month()
		if rule.MonthOfYear != 0 {
			month = rule.MonthOfYear
		}
		for p := 0; ; p++ {
			year := anchor.Year() + p*interval
			if time.Date(year, month, 1, 0, 0, 0, 0, anchor.Location()).After(limit) {
				return
			}
			d, ok := yearlyCandidate(rule, anchor, year, month)
			if !ok || d.Before(anchor) {
				continue
			}
			if d.After(limit) || !yield(d) {
				return
			}
		}
	}
}

func weeklyMatch(rule Rule, anchor, d time.Time) bool {
	if len(rule.DaysOfWeek) == 0 {
		return d.Weekday() == anchor.Weekday()
	}
	return slices.Contains(rule.DaysOfWeek, d.Weekday())
}

// monthlyCandidates returns the ascending dates a monthly rule selects in one
// month.
func monthlyCandidates(rule Rule, anchor time.Time, year int, month time.Month) []time.Time {
	loc := anchor.Location()
	switch {
	case rule.NthWeekday != nil:
		if d, ok := nthWeekdayOf(year, month, rule.NthWeekday.N, rule.NthWeekday.Weekday, loc); ok {
			return []time.Time{d}
		}
		return nil
	case len(rule.SpecificDatesOfMonth) > 0:
		out := make([]time.Time, 0, len(rule.SpecificDatesOfMonth))
		for _, day := range rule.SpecificDatesOfMonth {
			out = append(out, clampDate(year, month, day, loc))
		}
		slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
		return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
	case rule.DayOfMonth > 0:
		return []time.Time{clampDate(year, month, rule.DayOfMonth, loc)}
	default:
		return []time.Time{clampDate(year, month, anchor.Day(), loc)}
	}
}

func yearlyCandidate(rule Rule, anchor time.Time, year int, month time.Month) (time.Time, bool) {
	loc := anchor.Location()
	switch {
	case rule.NthWeekday != nil:
		return nthWeekdayOf(year, month, rule.NthWeekday.N, rule.NthWeekday.Weekday, loc)
	case rule.DayOfMonth > 0:
		return clampDate(year, month, rule.DayOfMonth, loc), true
	default:
		return clampDate(year, month, anchor.Day(), loc), true
	}
}
