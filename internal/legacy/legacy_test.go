package legacy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wneill3333/neill-planner-sub008/internal/recurrence"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestParse_Weekly(t *testing.T) {
	v := newValidator(t)

	rule, err := v.Parse(map[string]any{
		"type":       "weekly",
		"interval":   1,
		"daysOfWeek": []any{1, 3},
		"endCondition": map[string]any{
			"type": "never",
		},
	}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, recurrence.Weekly, rule.Type)
	assert.Equal(t, 1, rule.Interval)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, rule.DaysOfWeek)
	assert.Equal(t, recurrence.EndNever, rule.End.Kind)
}

func TestParse_DefaultsIntervalAndEnd(t *testing.T) {
	v := newValidator(t)

	rule, err := v.Parse(map[string]any{"type": "daily"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Interval)
	assert.Equal(t, recurrence.EndNever, rule.End.Kind)
}

func TestParse_EndConditions(t *testing.T) {
	v := newValidator(t)

	rule, err := v.Parse(map[string]any{
		"type":         "daily",
		"endCondition": map[string]any{"type": "date", "endDate": "2026-06-30T00:00:00.000Z"},
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, recurrence.EndAfterDate, rule.End.Kind)
	assert.Equal(t, "2026-06-30", recurrence.FormatDate(rule.End.Date))

	rule, err = v.Parse(map[string]any{
		"type":         "monthly",
		"endCondition": map[string]any{"type": "occurrences", "maxOccurrences": 12},
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, recurrence.AfterCount(12), rule.End)
}

func TestParse_NumbersFromStoreDecoding(t *testing.T) {
	v := newValidator(t)

	// Documents read back from the store carry json.Number values.
	rule, err := v.Parse(map[string]any{
		"type":       "monthly",
		"interval":   json.Number("2"),
		"nthWeekday": map[string]any{"n": json.Number("-1"), "weekday": json.Number("5")},
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, rule.Interval)
	require.NotNil(t, rule.NthWeekday)
	assert.Equal(t, recurrence.NthWeekday{N: -1, Weekday: time.Friday}, *rule.NthWeekday)
}

func TestParse_NullRefinements(t *testing.T) {
	v := newValidator(t)

	rule, err := v.Parse(map[string]any{
		"type":                 "yearly",
		"dayOfMonth":           nil,
		"monthOfYear":          11,
		"nthWeekday":           map[string]any{"n": 4, "weekday": 4},
		"specificDatesOfMonth": nil,
		"exceptions":           []any{"2026-11-26"},
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.November, rule.MonthOfYear)
	assert.Zero(t, rule.DayOfMonth)
	require.Len(t, rule.Exceptions, 1)
	assert.True(t, rule.IsException(time.Date(2026, 11, 26, 0, 0, 0, 0, time.UTC)))
}

func TestParse_AfterCompletion(t *testing.T) {
	v := newValidator(t)

	rule, err := v.Parse(map[string]any{"type": "afterCompletion", "daysAfterCompletion": 3}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, recurrence.AfterCompletion, rule.Type)
	assert.Equal(t, 3, rule.DaysAfterCompletion)
}

func TestParse_RejectsBadShapes(t *testing.T) {
	v := newValidator(t)

	cases := map[string]map[string]any{
		"missing":            nil,
		"unknown type":       {"type": "hourly"},
		"zero interval":      {"type": "daily", "interval": 0},
		"weekday range":      {"type": "weekly", "daysOfWeek": []any{7}},
		"unknown field":      {"type": "daily", "timezone": "UTC"},
		"bad end type":       {"type": "daily", "endCondition": map[string]any{"type": "forever"}},
		"end date missing":   {"type": "daily", "endCondition": map[string]any{"type": "date"}},
		"bad exception date": {"type": "daily", "exceptions": []any{"tomorrow"}},
		"string interval":    {"type": "daily", "interval": "2"},
		"nth out of range":   {"type": "monthly", "nthWeekday": map[string]any{"n": 6, "weekday": 1}},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(raw, time.UTC)
			require.Error(t, err)
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestEncode_RoundTrips(t *testing.T) {
	v := newValidator(t)

	rules := []recurrence.Rule{
		{Type: recurrence.Daily, Interval: 2, End: recurrence.Never()},
		{Type: recurrence.Weekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Monday, time.Friday}, End: recurrence.AfterCount(10)},
		{Type: recurrence.Monthly, Interval: 1, NthWeekday: &recurrence.NthWeekday{N: 3, Weekday: time.Tuesday}, End: recurrence.Never()},
		{Type: recurrence.Monthly, Interval: 1, SpecificDatesOfMonth: []int{1, 15}, End: recurrence.Never()},
		{
			Type: recurrence.Yearly, Interval: 1, MonthOfYear: time.March, DayOfMonth: 31,
			End:        recurrence.Until(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
			Exceptions: []time.Time{time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)},
		},
		{Type: recurrence.AfterCompletion, DaysAfterCompletion: 4, End: recurrence.Never()},
	}

	for _, want := range rules {
		t.Run(string(want.Type), func(t *testing.T) {
			got, err := v.Parse(Encode(want), time.UTC)
			require.NoError(t, err)
			if want.Type == recurrence.AfterCompletion {
				// interval is not stored for afterCompletion and defaults to 1
				want.Interval = 1
			}
			assert.Equal(t, want, got)
		})
	}
}
