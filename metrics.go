package trading

import "time"

// MetricsSink relays operational counters, gauges and timings to an
// external monitoring collector. The core emits measurements but never
// persists them itself; implementations must not block the calling
// goroutine.
type MetricsSink interface {
	Count(name string, delta int64, tags map[string]string)

	Gauge(name string, value float64, tags map[string]string)

	Timing(name string, duration time.Duration, tags map[string]string)
}
