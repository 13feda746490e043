// Package tracer wraps OpenTelemetry spans around the statements executed by
// the core driver. The Tracer interface keeps the core independent from the
// otel SDK; NoopTracer is used when tracing is not configured.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanPrefix prefixes every span name created by StartQuery.
const SpanPrefix = "relmodel."

// Tracer starts spans.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is the subset of an OpenTelemetry span used by the driver.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code codes.Code, description string)
	End()
}

// NoopTracer discards everything.
type NoopTracer struct{}

// StartSpan returns ctx unchanged and a span that does nothing.
func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan does nothing.
type NoopSpan struct{}

func (NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}
func (NoopSpan) RecordError(_ error)                    {}
func (NoopSpan) SetStatus(_ codes.Code, _ string)       {}
func (NoopSpan) End()                                   {}

// OtelTracer adapts a trace.Tracer obtained from an OpenTelemetry provider.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps t. t must not be nil.
func NewOtelTracer(t trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: t}
}

// StartSpan starts a client span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttributes(attrs ...attribute.KeyValue) { s.span.SetAttributes(attrs...) }
func (s otelSpan) RecordError(err error)                     { s.span.RecordError(err) }
func (s otelSpan) SetStatus(code codes.Code, desc string)    { s.span.SetStatus(code, desc) }
func (s otelSpan) End()                                      { s.span.End() }

// QueryMetadata describes one executed statement, following the OpenTelemetry
// database semantic conventions where they apply.
type QueryMetadata struct {
	SQL       string
	Database  string // postgres, mysql, sqlite
	Operation string // SELECT, INSERT, UPDATE, DELETE
	Table     string
	Duration  time.Duration

	// Rows is the number of rows returned by a SELECT or affected by a write.
	Rows  int64
	Error error
}

// StartQuery starts a span named after the operation and table of sql, e.g.
// "relmodel.SELECT offices".
func StartQuery(ctx context.Context, t Tracer, sql, table string) (context.Context, Span) {
	if t == nil {
		t = NoopTracer{}
	}
	name := SpanPrefix + DetectOperation(sql)
	if table != "" {
		name += " " + table
	}
	return t.StartSpan(ctx, name)
}

// AddQueryAttributes records meta on span and sets its status.
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	op := meta.Operation
	if op == "" {
		op = DetectOperation(meta.SQL)
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", op),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}
	if meta.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", meta.Table))
	}
	if meta.Error == nil {
		if op == "SELECT" {
			attrs = append(attrs, attribute.Int64("db.rows_returned", meta.Rows))
		} else {
			attrs = append(attrs, attribute.Int64("db.rows_affected", meta.Rows))
		}
	}
	span.SetAttributes(attrs...)

	if meta.Error != nil {
		span.RecordError(meta.Error)
		span.SetStatus(codes.Error, meta.Error.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// DetectOperation returns SELECT, INSERT, UPDATE, DELETE or UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "UNKNOWN"
}
