package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nextlevelbuilder/autoreply/internal/agent"

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }

// startStage opens a child span for one pipeline stage.
func (p *Pipeline) startStage(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "autoreply."+name, trace.WithAttributes(attrs...))
}

// endStage closes span, marking it failed when err is non-nil.
func endStage(span trace.Span, err error) {
	if err != nil {
		markFailed(span, err)
	}
	span.End()
}

func markFailed(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
