// Package tracing wraps OpenTelemetry so the engine can record spans around
// compliance evaluations and workflow transitions without every caller
// importing the otel API. Applications that do not initialise an exporter get
// no-op spans.
package tracing
