package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/crossbuild/internal/core/ports"
)

// LogBufferSize determines the size of the async log channel.
const LogBufferSize = 4096

var (
	_ ports.Tracer = (*OTelTracer)(nil)
	_ ports.Span   = (*OTelSpan)(nil)
)

// Option configures an OTelTracer.
type Option func(*OTelTracer)

// WithRenderer streams span output to renderer.
func WithRenderer(renderer ports.Renderer) Option {
	return func(t *OTelTracer) {
		t.renderer = renderer
	}
}

// WithTracerProvider creates spans from provider instead of the global OTel provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *OTelTracer) {
		t.provider = provider
	}
}

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
// Span output is batched and delivered to the renderer from a single goroutine,
// so chunks of one span arrive in write order.
type OTelTracer struct {
	tracer   trace.Tracer
	provider trace.TracerProvider
	renderer ports.Renderer

	events chan func()
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewOTelTracer creates a new OTelTracer with the given instrumentation name.
func NewOTelTracer(name string, opts ...Option) *OTelTracer {
	t := &OTelTracer{
		events: make(chan func(), LogBufferSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.provider == nil {
		t.provider = otel.GetTracerProvider()
	}
	t.tracer = t.provider.Tracer(name)

	go t.runLoop()
	return t
}

func (t *OTelTracer) runLoop() {
	defer close(t.done)
	for fn := range t.events {
		fn()
	}
}

// enqueue schedules fn on the delivery goroutine.
// Non-blocking sends drop fn when the buffer is full.
func (t *OTelTracer) enqueue(fn func(), block bool) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return false
	}
	if block {
		t.events <- fn
		return true
	}
	select {
	case t.events <- fn:
		return true
	default:
		return false
	}
}

// drain blocks until everything enqueued so far has been delivered.
func (t *OTelTracer) drain() {
	barrier := make(chan struct{})
	if t.enqueue(func() { close(barrier) }, true) {
		<-barrier
	}
}

// Shutdown delivers pending output and stops the background log processor.
func (t *OTelTracer) Shutdown(_ context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.events)
	t.mu.Unlock()

	<-t.done
	return nil
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := ports.NewSpanConfig(opts...)

	attrs := make([]attribute.KeyValue, 0, len(cfg.Attributes))
	for key, value := range cfg.Attributes {
		attrs = append(attrs, attributeOf(key, value))
	}
	// Attributes go in at start so span processors see the task kind in OnStart.
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	s := &OTelSpan{span: span, tracer: t}

	if t.renderer != nil {
		spanID := span.SpanContext().SpanID().String()
		renderer := t.renderer
		s.batcher = NewBatchProcessor(0, 0, func(data []byte) {
			// Output is dropped rather than blocking the build when the renderer falls behind.
			t.enqueue(func() { renderer.OnTaskLog(spanID, data) }, false)
		})
	}

	return ctx, s
}

// EmitPlan records the planned tasks on the current span and announces them to the renderer.
func (t *OTelTracer) EmitPlan(ctx context.Context, taskNames []string, deps map[string][]string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("tasks", taskNames),
		))
	}

	if t.renderer != nil {
		t.renderer.OnPlanEmit(taskNames, deps)
	}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span    trace.Span
	tracer  *OTelTracer
	batcher *BatchProcessor
}

// End flushes buffered output and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
		s.tracer.drain()
	}
	s.span.End()
}

// RecordError records an error for the span and marks it failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// MarkExecStart records the moment the underlying process was launched.
func (s *OTelSpan) MarkExecStart() {
	s.span.AddEvent("exec_start", trace.WithTimestamp(time.Now()))
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(attributeOf(key, value))
}

func attributeOf(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// Write satisfies io.Writer by batching output for the renderer, or adding a log event to the span.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}

// Batcher returns the span's output batcher, or nil when no renderer is attached.
func (s *OTelSpan) Batcher() *BatchProcessor {
	return s.batcher
}
