// Package usage models token consumption reports for the completion and embedding budgets.
package usage

import "time"

// Period is the aggregation granularity.
type Period string

// Aggregation periods. Total has no window and reports against the monthly budget.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query value to a Period. Empty means day.
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(s); p {
	case "":
		return PeriodDay, true
	case PeriodDay, PeriodMonth, PeriodTotal:
		return p, true
	default:
		return "", false
	}
}

// Window returns the UTC calendar period containing at, end exclusive.
// PeriodTotal has no window and returns zero times.
func (p Period) Window(at time.Time) (start, end time.Time) {
	at = at.UTC()
	switch p {
	case PeriodDay:
		start = time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	case PeriodMonth:
		start = time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

// Counts is how many provider calls were made and how many tokens they billed.
type Counts struct {
	Requests int64
	Tokens   int64
}

// Budget is a token cap and what is left of it. A zero limit is unlimited,
// reported with a remaining of -1.
type Budget struct {
	Limit     int64
	Remaining int64
}

// Exhausted reports whether a capped budget has nothing left.
func (b Budget) Exhausted() bool { return b.Limit > 0 && b.Remaining <= 0 }

// Report is the usage of one scope over one period.
type Report struct {
	scope  string
	period Period
	start  time.Time
	end    time.Time
	counts Counts
	budget Budget
}

// NewReport builds the report for scope over the period window containing at.
func NewReport(scope string, period Period, at time.Time, c Counts, b Budget) Report {
	start, end := period.Window(at)
	return Report{scope: scope, period: period, start: start, end: end, counts: c, budget: b}
}

// Scope is what was counted: completion or embedding.
func (r *Report) Scope() string { return r.scope }

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// Window returns the period bounds. Both are zero for PeriodTotal.
func (r *Report) Window() (start, end time.Time) { return r.start, r.end }

// ResetsAt is when the budget refills, or the zero time when it never does.
func (r *Report) ResetsAt() time.Time { return r.end }

// Counts returns requests and tokens consumed.
func (r *Report) Counts() Counts { return r.counts }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }
