package recurrence

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func dates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = FormatDate(t)
	}
	return out
}

func TestGenerate_DailySpacing(t *testing.T) {
	anchor := day("2026-03-01")
	for _, k := range []int{1, 2, 3, 7} {
		for _, n := range []int{0, 1, 5, 12} {
			t.Run(fmt.Sprintf("k=%d/n=%d", k, n), func(t *testing.T) {
				rule := Rule{Type: Daily, Interval: k}
				got := Generate(rule, anchor, anchor, anchor.AddDate(0, 0, n*k))

				require.Len(t, got, n+1)
				for i := 1; i < len(got); i++ {
					assert.Equal(t, k, daysBetween(got[i-1], got[i]))
				}
			})
		}
	}
}

func TestGenerate_DailyAlignedToAnchor(t *testing.T) {
	rule := Rule{Type: Daily, Interval: 3}
	got := Generate(rule, day("2026-01-01"), day("2026-01-02"), day("2026-01-10"))
	assert.Equal(t, []string{"2026-01-04", "2026-01-07", "2026-01-10"}, dates(got))
}

func TestGenerate_WeeklyMonWed(t *testing.T) {
	rule := Rule{Type: Weekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday}}
	start := day("2026-01-05") // Monday
	got := Generate(rule, start, start, start.AddDate(0, 0, 13))

	require.Len(t, got, 4)
	seen := map[string]bool{}
	for _, d := range got {
		assert.Contains(t, []time.Weekday{time.Monday, time.Wednesday}, d.Weekday())
		assert.False(t, seen[FormatDate(d)], "repeated %s", FormatDate(d))
		seen[FormatDate(d)] = true
	}
	assert.Equal(t, []string{"2026-01-05", "2026-01-07", "2026-01-12", "2026-01-14"}, dates(got))
}

func TestGenerate_WeeklyIgnoresInterval(t *testing.T) {
	base := Rule{Type: Weekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Friday}}
	every2 := base
	every2.Interval = 2

	anchor := day("2026-01-02")
	end := anchor.AddDate(0, 0, 27)
	assert.Equal(t, Generate(base, anchor, anchor, end), Generate(every2, anchor, anchor, end))
	assert.Len(t, Generate(every2, anchor, anchor, end), 4)
}

func TestGenerate_WeeklyDefaultsToAnchorWeekday(t *testing.T) {
	rule := Rule{Type: Weekly, Interval: 1}
	got := Generate(rule, day("2026-01-01"), day("2026-01-01"), day("2026-01-31"))
	assert.Equal(t, []string{"2026-01-01", "2026-01-08", "2026-01-15", "2026-01-22", "2026-01-29"}, dates(got))
}

func TestGenerate_MonthlyClampsToLastDay(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1}
	got := Generate(rule, day("2026-01-31"), day("2026-01-31"), day("2026-04-30"))
	assert.Equal(t, []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"}, dates(got))
}

func TestGenerate_MonthlyInterval(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 2}
	got := Generate(rule, day("2026-01-15"), day("2026-01-01"), day("2026-12-31"))
	assert.Equal(t, []string{"2026-01-15", "2026-03-15", "2026-05-15", "2026-07-15", "2026-09-15", "2026-11-15"}, dates(got))
}

func TestGenerate_MonthlyNthWeekday(t *testing.T) {
	third := Rule{Type: Monthly, Interval: 1, NthWeekday: &NthWeekday{N: 3, Weekday: time.Tuesday}}
	got := Generate(third, day("2026-01-01"), day("2026-01-01"), day("2026-03-31"))
	assert.Equal(t, []string{"2026-01-20", "2026-02-17", "2026-03-17"}, dates(got))

	last := Rule{Type: Monthly, Interval: 1, NthWeekday: &NthWeekday{N: -1, Weekday: time.Friday}}
	got = Generate(last, day("2026-01-01"), day("2026-01-01"), day("2026-02-28"))
	assert.Equal(t, []string{"2026-01-30", "2026-02-27"}, dates(got))
}

func TestGenerate_MonthlyFifthWeekdaySkipsShortMonths(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1, NthWeekday: &NthWeekday{N: 5, Weekday: time.Thursday}}
	got := Generate(rule, day("2026-01-01"), day("2026-01-01"), day("2026-04-30"))
	// January 2026 and April 2026 have five Thursdays; February and March do not.
	assert.Equal(t, []string{"2026-01-29", "2026-04-30"}, dates(got))
}

func TestGenerate_MonthlySpecificDates(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1, SpecificDatesOfMonth: []int{30, 1, 15, 31}}
	got := Generate(rule, day("2026-01-10"), day("2026-01-01"), day("2026-02-28"))
	// 30 and 31 both clamp to Feb 28 and collapse into one date.
	assert.Equal(t, []string{"2026-01-15", "2026-01-30", "2026-01-31", "2026-02-01", "2026-02-15", "2026-02-28"}, dates(got))
}

func TestGenerate_YearlyLeapDay(t *testing.T) {
	rule := Rule{Type: Yearly, Interval: 1}
	got := Generate(rule, day("2024-02-29"), day("2024-01-01"), day("2028-12-31"))
	assert.Equal(t, []string{"2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"}, dates(got))
}

func TestGenerate_YearlyNthWeekdayInMonth(t *testing.T) {
	rule := Rule{
		Type:        Yearly,
		Interval:    1,
		MonthOfYear: time.November,
		NthWeekday:  &NthWeekday{N: 4, Weekday: time.Thursday},
	}
	got := Generate(rule, day("2026-01-01"), day("2026-01-01"), day("2027-12-31"))
	assert.Equal(t, []string{"2026-11-26", "2027-11-25"}, dates(got))
}

func TestGenerate_Idempotent(t *testing.T) {
	rules := []Rule{
		{Type: Daily, Interval: 2},
		{Type: Weekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Tuesday, time.Saturday}},
		{Type: Monthly, Interval: 1},
		{Type: Yearly, Interval: 1},
		{Type: AfterCompletion, DaysAfterCompletion: 3},
	}
	for _, rule := range rules {
		t.Run(string(rule.Type), func(t *testing.T) {
			a := Generate(rule, day("2026-01-31"), day("2026-02-10"), day("2027-06-01"))
			b := Generate(rule, day("2026-01-31"), day("2026-02-10"), day("2027-06-01"))
			assert.Equal(t, a, b)
		})
	}
}

func TestGenerate_SkipsExceptions(t *testing.T) {
	rule := Rule{
		Type:       Daily,
		Interval:   1,
		Exceptions: []time.Time{day("2026-01-03"), day("2026-01-05")},
	}
	got := Generate(rule, day("2026-01-01"), day("2026-01-01"), day("2026-01-06"))
	assert.Equal(t, []string{"2026-01-01", "2026-01-02", "2026-01-04", "2026-01-06"}, dates(got))
	for _, d := range got {
		assert.False(t, rule.IsException(d))
	}
}

func TestGenerate_StaysInsideBounds(t *testing.T) {
	rule := Rule{Type: Daily, Interval: 1, End: Until(day("2026-01-20"))}
	start, end := day("2026-01-10"), day("2026-02-28")
	got := Generate(rule, day("2026-01-01"), start, end)

	require.NotEmpty(t, got)
	assert.Equal(t, "2026-01-10", FormatDate(got[0]))
	assert.Equal(t, "2026-01-20", FormatDate(got[len(got)-1]))
	for _, d := range got {
		assert.False(t, d.Before(start))
		assert.False(t, d.After(day("2026-01-20")))
	}
}

func TestGenerate_AfterCountCountsFromAnchor(t *testing.T) {
	rule := Rule{Type: Daily, Interval: 1, End: AfterCount(5)}

	got := Generate(rule, day("2026-01-01"), day("2026-01-01"), day("2026-12-31"))
	assert.Len(t, got, 5)

	got = Generate(rule, day("2026-01-01"), day("2026-01-03"), day("2026-12-31"))
	assert.Equal(t, []string{"2026-01-03", "2026-01-04", "2026-01-05"}, dates(got))
}

func TestGenerate_AfterCountIncludesExceptions(t *testing.T) {
	rule := Rule{Type: Daily, Interval: 1, End: AfterCount(3), Exceptions: []time.Time{day("2026-01-02")}}
	got := Generate(rule, day("2026-01-01"), day("2026-01-01"), day("2026-01-31"))
	assert.Equal(t, []string{"2026-01-01", "2026-01-03"}, dates(got))
}

func TestGenerate_AfterCompletionYieldsOne(t *testing.T) {
	rule := Rule{Type: AfterCompletion, DaysAfterCompletion: 7}

	got := Generate(rule, day("2026-01-01"), day("2026-03-01"), day("2036-03-01"))
	assert.Equal(t, []string{"2026-03-01"}, dates(got))

	got = Generate(rule, day("2026-05-01"), day("2026-03-01"), day("2036-03-01"))
	assert.Equal(t, []string{"2026-05-01"}, dates(got))
}

func TestGenerate_EmptyWindow(t *testing.T) {
	rule := Rule{Type: Daily, Interval: 1}
	assert.Empty(t, Generate(rule, day("2026-01-01"), day("2026-01-10"), day("2026-01-05")))
	assert.Empty(t, Generate(rule, day("2026-06-01"), day("2026-01-01"), day("2026-05-31")))
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"2026-01-31", 1, "2026-02-28"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2026-03-31", -1, "2026-02-28"},
		{"2026-12-15", 1, "2027-01-15"},
		{"2024-02-29", 12, "2025-02-28"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDate(AddMonths(day(tc.in), tc.n)), "%s %+d", tc.in, tc.n)
	}
}
