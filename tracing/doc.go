// Package tracing wraps OpenTelemetry spans around queued tasks and command
// runs. Spans are no-ops until Init or InitWithExporter installs a provider.
package tracing
