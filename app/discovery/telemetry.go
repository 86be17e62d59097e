package discovery

import (
	"log/slog"
)

// Telemetry receives diagnostic events from discovery services. All methods
// are safe to call unconditionally; deployments without a telemetry backend
// use NopTelemetry, so call sites never nil-check.
type Telemetry interface {
	// StartSpan marks the start of a traced operation and returns the
	// function that ends it.
	StartSpan(op, description string) func()
	AddBreadcrumb(category, message string, data map[string]interface{})
	CaptureException(err error, data map[string]interface{})
}

// NopTelemetry discards all events.
type NopTelemetry struct{}

func (NopTelemetry) StartSpan(op, description string) func()                       { return func() {} }
func (NopTelemetry) AddBreadcrumb(category, message string, data map[string]interface{}) {}
func (NopTelemetry) CaptureException(err error, data map[string]interface{})             {}

// SlogTelemetry writes events to the default structured logger.
type SlogTelemetry struct{}

func (SlogTelemetry) StartSpan(op, description string) func() {
	slog.Debug("Span started", "op", op, "description", description)
	return func() {
		slog.Debug("Span finished", "op", op)
	}
}

func (SlogTelemetry) AddBreadcrumb(category, message string, data map[string]interface{}) {
	slog.Debug("Breadcrumb", "category", category, "message", message, "data", data)
}

func (SlogTelemetry) CaptureException(err error, data map[string]interface{}) {
	slog.Error("Captured exception", "error", err, "data", data)
}
