// Package otelexport replays spans from a finished trace file as
// OpenTelemetry spans, keeping their original timestamps.
package otelexport

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktr "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/chrometrace"
	"github.com/zoobzio/chrometrace/query"
)

// InstrumentationName is the tracer name used for exported spans.
const InstrumentationName = "github.com/zoobzio/chrometrace/otelexport"

// NewStdoutProvider builds a provider that writes spans to w as JSON.
// The returned provider must be shut down to flush its batcher.
func NewStdoutProvider(w io.Writer, pretty bool) (*sdktr.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating stdout exporter: %w", err)
	}

	return sdktr.NewTracerProvider(
		sdktr.WithSyncer(exporter),
		sdktr.WithResource(resource.Empty())), nil
}

// Export starts and ends one OpenTelemetry span per trace span. Spans on
// the same thread are nested by their original stacking, so a child span
// shares its parent's trace. It returns the number of spans exported.
func Export(ctx context.Context, spans []query.Span, tp trace.TracerProvider) (int, error) {
	if tp == nil {
		return 0, fmt.Errorf("otelexport: nil tracer provider")
	}
	tracer := tp.Tracer(InstrumentationName)

	// Parents must start before their children.
	ordered := make([]query.Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].Depth < ordered[j].Depth
	})

	type open struct {
		span query.Span
		ctx  context.Context
	}
	stacks := make(map[[2]int64][]open)

	count := 0
	for _, s := range ordered {
		key := [2]int64{int64(s.PID), s.TID}
		stack := stacks[key]
		for len(stack) > 0 && stack[len(stack)-1].span.End <= s.Start {
			stack = stack[:len(stack)-1]
		}

		parent := ctx
		if len(stack) > 0 {
			parent = stack[len(stack)-1].ctx
		}

		spanCtx, span := tracer.Start(parent, s.Name,
			trace.WithTimestamp(s.StartTime()),
			trace.WithAttributes(Attributes(s)...))
		span.End(trace.WithTimestamp(s.EndTime()))
		count++

		stacks[key] = append(stack, open{span: s, ctx: spanCtx})
	}
	return count, nil
}

// Attributes converts a span's identity and args into attributes.
func Attributes(s query.Span) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int("pid", s.PID),
		attribute.Int64("tid", s.TID),
		attribute.String("category", s.Category),
	}
	for _, arg := range s.Args {
		attrs = append(attrs, argAttribute(arg))
	}
	return attrs
}

func argAttribute(arg chrometrace.Arg) attribute.KeyValue {
	key := "args." + arg.Key
	switch v := arg.Value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case float64:
		return attribute.Float64(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
