package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
)

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// Bridge is a span processor that reports task spans to a renderer.
// Spans without a task kind attribute are not tasks and are ignored.
type Bridge struct {
	renderer ports.Renderer
}

// NewBridge returns a Bridge reporting to renderer. A nil renderer makes it a no-op.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// NewTracerProvider returns an SDK tracer provider whose task spans are reported to renderer.
func NewTracerProvider(renderer ports.Renderer) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewBridge(renderer)))
}

// OnStart reports a started task span.
func (b *Bridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	kind, ok := b.taskKind(s)
	if !ok {
		return
	}
	b.renderer.OnTaskStart(ports.TaskStarted{
		SpanID: s.SpanContext().SpanID().String(),
		Name:   s.Name(),
		Kind:   kind,
		At:     s.StartTime(),
	})
}

// OnEnd reports a finished task span with its exit code and failure, if any.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if _, ok := b.taskKind(s); !ok {
		return
	}

	var err error
	if status := s.Status(); status.Code == codes.Error {
		desc := status.Description
		if desc == "" {
			desc = "task failed"
		}
		err = errors.New(desc)
	}

	b.renderer.OnTaskComplete(ports.TaskFinished{
		SpanID:   s.SpanContext().SpanID().String(),
		At:       s.EndTime(),
		ExitCode: exitCode(s.Attributes(), err),
		Err:      err,
	})
}

// ForceFlush does nothing; events are delivered synchronously.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}

func (b *Bridge) taskKind(s sdktrace.ReadOnlySpan) (domain.TaskKind, bool) {
	if b.renderer == nil || !s.SpanContext().IsValid() {
		return "", false
	}
	for _, kv := range s.Attributes() {
		if kv.Key == ports.AttrTaskKind {
			return domain.TaskKind(kv.Value.AsString()), true
		}
	}
	return "", false
}

// exitCode reads the recorded exit code, falling back to what domain.ExitCode
// reports for a span that never recorded one.
func exitCode(attrs []attribute.KeyValue, err error) int {
	for _, kv := range attrs {
		if kv.Key == ports.AttrTaskExitCode {
			return int(kv.Value.AsInt64())
		}
	}
	return domain.ExitCode(err)
}
