// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces that the aggregator uses to report task completion
// changes. It batches events on a background goroutine and fans them out to
// pluggable sinks such as the visual indicator, the remote document store,
// and Prometheus metrics.
package progress
