package ratelimit

import "time"

// Usage above this fraction of the exchange-call budget raises the
// status warning flag.
const exchangeWarningFactor = 0.8

// ExchangeCallStatus reports how much of the per-venue call budget one
// user has consumed within the current window.
type ExchangeCallStatus struct {
	Used    int
	Limit   int
	Reset   time.Time
	Warning bool
}

// TrackExchangeCall counts one call against the (user, exchange)
// budget. The budget protects the venue's own rate limits, so callers
// should check CanMakeExchangeCall before issuing the call.
func (l *Limiter) TrackExchangeCall(
	userID string,
	exchange string,
	limit int,
	window time.Duration,
) *Result {
	if limit < 0 {
		return &Result{Allowed: true, Remaining: -1}
	}

	l.exchangeCallsMutex.Lock()
	defer l.exchangeCallsMutex.Unlock()

	key := userID + ":" + exchange
	now := l.nowFn()

	result, updated := checkBucket(l.exchangeCalls[key], now, limit, window)
	l.exchangeCalls[key] = updated

	if !result.Allowed {
		l.metrics.Count(
			"ratelimit.exchange_denials",
			1,
			map[string]string{"exchange": exchange},
		)
	}

	return result
}

// CanMakeExchangeCall reports whether the budget has room left without
// consuming any of it.
func (l *Limiter) CanMakeExchangeCall(
	userID string,
	exchange string,
	limit int,
	window time.Duration,
) bool {
	if limit < 0 {
		return true
	}

	l.exchangeCallsMutex.Lock()
	defer l.exchangeCallsMutex.Unlock()

	current, exists := l.exchangeCalls[userID+":"+exchange]
	if !exists {
		return true
	}

	if l.nowFn().Sub(current.windowStart) >= window {
		return true
	}

	return current.count < limit
}

func (l *Limiter) ExchangeCallStatus(
	userID string,
	exchange string,
	limit int,
	window time.Duration,
) *ExchangeCallStatus {
	l.exchangeCallsMutex.Lock()
	defer l.exchangeCallsMutex.Unlock()

	status := &ExchangeCallStatus{Limit: limit}

	current, exists := l.exchangeCalls[userID+":"+exchange]
	if !exists || l.nowFn().Sub(current.windowStart) >= window {
		return status
	}

	status.Used = current.count
	status.Reset = current.windowStart.Add(window)
	status.Warning = limit > 0 &&
		float64(current.count) >= exchangeWarningFactor*float64(limit)

	return status
}
