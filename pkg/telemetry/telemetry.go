// Package telemetry keeps the teacher's Tracer abstraction (a named span you
// Start, tag with attributes, and End) without the OpenTelemetry SDK or any
// exporter behind it. spec.md lists "persistent metrics export" as an
// explicit non-goal for this tool, and there is no collector for a
// single-operator CLI to export to; what survives is the shape: spans of
// work (a session launch, a coverage run) tagged with attributes, emitted as
// structured zap fields instead of OTLP spans.
package telemetry

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Attributes is a flat set of key/value pairs attached to a span or event.
type Attributes map[string]any

// Tracer is a named span of work. Start/End bracket it; AddEvent records a
// point-in-time fact inside it; WithAttributes tags the whole span.
type Tracer interface {
	Start()
	WithAttributes(attrs Attributes) Tracer
	AddEvent(name string, attrs Attributes)
	SetError(err error)
	Spawn(name string) Tracer
	End()
}

// zapTracer emits every call as a structured zap log line instead of an
// exported span.
type zapTracer struct {
	logger    *zap.Logger
	name      string
	startedAt time.Time
	attrs     Attributes
}

// NewTracer creates a root tracer that logs through logger.
func NewTracer(logger *zap.Logger, name string) Tracer {
	return &zapTracer{logger: logger, name: name, attrs: Attributes{}}
}

func (t *zapTracer) Start() {
	t.startedAt = time.Now()
	t.logger.Debug("span start", zap.String("span", t.name))
}

func (t *zapTracer) WithAttributes(attrs Attributes) Tracer {
	for k, v := range attrs {
		t.attrs[k] = v
	}
	return t
}

func (t *zapTracer) AddEvent(name string, attrs Attributes) {
	fields := make([]zap.Field, 0, len(attrs)+2)
	fields = append(fields, zap.String("span", t.name), zap.String("event", name))
	for k, v := range attrs {
		fields = append(fields, zap.Any(k, v))
	}
	t.logger.Debug("span event", fields...)
}

func (t *zapTracer) SetError(err error) {
	t.logger.Error("span error", zap.String("span", t.name), zap.Error(err))
}

func (t *zapTracer) Spawn(name string) Tracer {
	return &zapTracer{logger: t.logger.With(zap.String("parent_span", t.name)), name: name, attrs: Attributes{}}
}

func (t *zapTracer) End() {
	fields := make([]zap.Field, 0, len(t.attrs)+2)
	fields = append(fields, zap.String("span", t.name), zap.Duration("elapsed", time.Since(t.startedAt)))
	for k, v := range t.attrs {
		fields = append(fields, zap.Any(k, v))
	}
	t.logger.Debug("span end", fields...)
}

// Factory constructs root tracers that share one logger, mirroring the
// teacher's TracerFactory.
type Factory struct {
	logger *zap.Logger
}

func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{logger: logger}
}

func (f *Factory) NewTracer(name string) Tracer {
	return NewTracer(f.logger, name)
}

// String formats Attributes for debug display (dry-run plan dumps etc.).
func (a Attributes) String() string {
	return fmt.Sprint(map[string]any(a))
}
