package worker

import "time"

// MetricsCollector receives worker counters. The loop does not care how a
// deployment surfaces them; anything richer can be scraped from the outbox
// table directly.
type MetricsCollector interface {
	RecordBatchClaimed(count int)
	RecordEventProcessed(eventKind string, success bool, duration time.Duration)
	RecordRequeue(eventKind string)
	RecordDeadLetter(eventKind string)
}

// NoOpMetricsCollector is the default sink for when metrics aren't needed.
type NoOpMetricsCollector struct{}

var _ MetricsCollector = (*NoOpMetricsCollector)(nil)

func (n *NoOpMetricsCollector) RecordBatchClaimed(count int) {}
func (n *NoOpMetricsCollector) RecordEventProcessed(eventKind string, success bool, duration time.Duration) {
}
func (n *NoOpMetricsCollector) RecordRequeue(eventKind string)    {}
func (n *NoOpMetricsCollector) RecordDeadLetter(eventKind string) {}
