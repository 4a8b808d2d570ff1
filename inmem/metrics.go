package inmem

import "time"

// MetricsSink discards every measurement. It stands in for a real
// monitoring collector when none is configured.
type MetricsSink struct{}

func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

func (ms *MetricsSink) Count(
	name string,
	delta int64,
	tags map[string]string,
) {
}

func (ms *MetricsSink) Gauge(
	name string,
	value float64,
	tags map[string]string,
) {
}

func (ms *MetricsSink) Timing(
	name string,
	duration time.Duration,
	tags map[string]string,
) {
}
