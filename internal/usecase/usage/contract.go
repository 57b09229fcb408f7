package usage

// BudgetReader exposes one scope's budget counters. budget.Tracker satisfies it.
type BudgetReader interface {
	Scope() string

	DailyLimit() int64
	DailyUsed() int64
	DailyRequests() int64
	RemainingDaily() int64

	MonthlyLimit() int64
	MonthlyUsed() int64
	MonthlyRequests() int64
	RemainingMonthly() int64
}
