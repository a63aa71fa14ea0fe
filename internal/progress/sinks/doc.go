// Package sinks contains progress.Sink implementations: the visual indicator
// updater, the remote document store writer, Prometheus collectors, a
// structured log sink, and a message bus forwarder.
package sinks
