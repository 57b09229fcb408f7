package usage

import (
	"testing"
	"time"
)

func TestPeriodWindow(t *testing.T) {
	at := time.Date(2026, 12, 31, 23, 10, 0, 0, time.FixedZone("PST", -8*3600))

	tests := []struct {
		period     Period
		start, end time.Time
	}{
		// 23:10 PST is already January 1st in UTC.
		{PeriodDay, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodTotal, time.Time{}, time.Time{}},
	}
	for _, tt := range tests {
		start, end := tt.period.Window(at)
		if !start.Equal(tt.start) || !end.Equal(tt.end) {
			t.Errorf("%s window = %v..%v, want %v..%v", tt.period, start, end, tt.start, tt.end)
		}
	}
}

func TestBudgetExhausted(t *testing.T) {
	tests := []struct {
		b    Budget
		want bool
	}{
		{Budget{Limit: 1000, Remaining: 1}, false},
		{Budget{Limit: 1000, Remaining: 0}, true},
		{Budget{Limit: 0, Remaining: -1}, false},
	}
	for _, tt := range tests {
		if got := tt.b.Exhausted(); got != tt.want {
			t.Errorf("%+v.Exhausted() = %v", tt.b, got)
		}
	}
}

func TestNewReport(t *testing.T) {
	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	r := NewReport("completion", PeriodMonth, at, Counts{Requests: 1542, Tokens: 384200}, Budget{Limit: 1_000_000, Remaining: 615_800})

	if r.Scope() != "completion" || r.Period() != PeriodMonth {
		t.Errorf("scope/period = %q/%q", r.Scope(), r.Period())
	}
	start, end := r.Window()
	if start.Day() != 1 || end.Month() != time.November {
		t.Errorf("window = %v..%v", start, end)
	}
	if !r.ResetsAt().Equal(end) {
		t.Errorf("ResetsAt = %v, want window end", r.ResetsAt())
	}
	if r.Counts().Tokens != 384200 || r.Budget().Exhausted() {
		t.Errorf("counts %+v budget %+v", r.Counts(), r.Budget())
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"", PeriodDay, true},
		{"day", PeriodDay, true},
		{"month", PeriodMonth, true},
		{"total", PeriodTotal, true},
		{"week", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePeriod(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePeriod(%q) = %q, %v", tt.in, got, ok)
		}
	}
}
