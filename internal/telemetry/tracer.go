package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the daemon-wide tracer name every span-emitting package starts
// spans under, grounded on the teacher's per-call LLM span
// (internal/agent/loop_tracing.go's emitLLMSpan) but emitted through the
// standard otel API instead of the teacher's DB-backed tracing.Collector,
// since SPEC_FULL has no trace-storage table of its own.
const tracerName = "jarvis-assistant"

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
