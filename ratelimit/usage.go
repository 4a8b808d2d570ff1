package ratelimit

type dailyCounter struct {
	date  string
	count int
}

// RecordDailyUsage counts usage against the user's calendar-date
// counter. The counter is not a rolling window: it resets implicitly
// whenever the stored date differs from today.
func (l *Limiter) RecordDailyUsage(userID string, amount int) int {
	l.usageMutex.Lock()
	defer l.usageMutex.Unlock()

	today := l.nowFn().Format("2006-01-02")

	counter, exists := l.usage[userID]
	if !exists || counter.date != today {
		counter = &dailyCounter{date: today}
		l.usage[userID] = counter
	}

	counter.count += amount

	return counter.count
}

func (l *Limiter) DailyUsage(userID string) int {
	l.usageMutex.Lock()
	defer l.usageMutex.Unlock()

	counter, exists := l.usage[userID]
	if !exists || counter.date != l.nowFn().Format("2006-01-02") {
		return 0
	}

	return counter.count
}
