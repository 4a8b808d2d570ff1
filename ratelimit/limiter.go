// Package ratelimit implements the tiered fixed-window request
// budget: per-(user, category) counters, a parallel per-exchange call
// budget, and calendar-date daily usage tracking.
package ratelimit

import (
	"sync"
	"time"

	"github.com/coinvex/trading"
)

type bucket struct {
	count       int
	windowStart time.Time
	limit       int
}

// Result reports the outcome of a limit check. When the call is not
// allowed, RetryAfter holds the time remaining in the current window.
type Result struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

type Limiter struct {
	bucketsMutex sync.Mutex
	buckets      map[string]*bucket

	exchangeCallsMutex sync.Mutex
	exchangeCalls      map[string]*bucket

	usageMutex sync.Mutex
	usage      map[string]*dailyCounter

	metrics trading.MetricsSink

	nowFn func() time.Time
}

func NewLimiter(metrics trading.MetricsSink) *Limiter {
	return &Limiter{
		buckets:       make(map[string]*bucket),
		exchangeCalls: make(map[string]*bucket),
		usage:         make(map[string]*dailyCounter),
		metrics:       metrics,
		nowFn:         time.Now,
	}
}

// CheckLimit applies fixed-window counting to the (user, category)
// key. A limit of -1 denotes unlimited usage.
func (l *Limiter) CheckLimit(
	userID string,
	category string,
	limit int,
	window time.Duration,
) *Result {
	if limit < 0 {
		return &Result{Allowed: true, Remaining: -1}
	}

	l.bucketsMutex.Lock()
	defer l.bucketsMutex.Unlock()

	key := userID + ":" + category
	now := l.nowFn()

	result, updated := checkBucket(l.buckets[key], now, limit, window)
	l.buckets[key] = updated

	if !result.Allowed {
		l.metrics.Count(
			"ratelimit.denials",
			1,
			map[string]string{"category": category},
		)
	}

	return result
}

// checkBucket runs the shared fixed-window logic: a missing or elapsed
// bucket is recreated, an active one is counted against the limit.
func checkBucket(
	current *bucket,
	now time.Time,
	limit int,
	window time.Duration,
) (*Result, *bucket) {
	if current == nil || now.Sub(current.windowStart) >= window {
		fresh := &bucket{
			count:       1,
			windowStart: now,
			limit:       limit,
		}

		return &Result{
			Allowed:   true,
			Remaining: limit - 1,
			Reset:     now.Add(window),
		}, fresh
	}

	reset := current.windowStart.Add(window)

	if current.count >= limit {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}, current
	}

	current.count++

	return &Result{
		Allowed:   true,
		Remaining: limit - current.count,
		Reset:     reset,
	}, current
}
