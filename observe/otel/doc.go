// Package otel is the OpenTelemetry slot for task group observers.
// It provides only Nop, an Observer whose hooks do nothing; no spans or
// span events are emitted.
package otel
