// Package recurrence models repeat rules and expands them into calendar dates.
//
// The package has no internal dependencies. Everything here is pure: the same
// rule, anchor and window always produce the same dates in the same order.
//
// # Rollover policy
//
// Monthly and yearly occurrences are computed from the anchor, never from the
// previous occurrence. When the anchor's day does not exist in the target
// month (a 31st stepping into April, a Feb 29 anchor in a non-leap year) the
// occurrence is clamped to the last day of that month:
//
//	anchor 2026-01-31, monthly, interval 1
//	  -> 2026-01-31, 2026-02-28, 2026-03-31, 2026-04-30
//
// # Alignment
//
// Occurrences are aligned to the anchor. A daily rule with interval 3 and
// anchor Monday selects Monday, Thursday, Sunday... regardless of where the
// requested window starts, so re-running the generator on a later day never
// shifts the series.
//
// # Weekly interval
//
// Weekly rules match by weekday set and do not honor Interval. Every week is
// selected. This is a known limitation kept for compatibility with existing
// legacy data.
package recurrence
