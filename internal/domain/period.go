package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Period is an inclusive range of UTC calendar days
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the calendar day of t falls inside the period
func (p Period) Contains(t time.Time) bool {
	day := DateOf(t)
	return !day.Before(p.Start) && !day.After(p.End)
}

// String renders the period as start..end
func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format(DateLayout), p.End.Format(DateLayout))
}

// DateOf truncates t to midnight UTC of its UTC calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar day
func Today() time.Time {
	return DateOf(time.Now())
}

// MonthPeriod returns the first and last day of the given calendar month
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// ResolvePeriod maps a budget period type and a reference date to the inclusive
// calendar-day bounds of the period containing that date.
func ResolvePeriod(period BudgetPeriod, ref time.Time) (Period, error) {
	ref = DateOf(ref)
	year, month, _ := ref.Date()

	switch period {
	case BudgetPeriodMonthly:
		return MonthPeriod(year, month), nil
	case BudgetPeriodQuarterly:
		first := time.Month((int(month)-1)/3*3 + 1)
		start := time.Date(year, first, 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(0, 3, -1)}, nil
	case BudgetPeriodYearly:
		return Period{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	}
	return Period{}, NewValidationError("period", fmt.Sprintf("unknown period %q", period))
}
