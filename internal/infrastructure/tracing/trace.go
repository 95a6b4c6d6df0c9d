package tracing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/shared/id"
)

// TraceID identifies an entire request flow, possibly spanning the HTTP
// surface, the UI thread, and an outbound app-store call.
type TraceID string

// SpanID identifies a single operation within a trace.
type SpanID string

// Prefixes for trace and span ULIDs.
const (
	tracePrefix = "trace"
	spanPrefix  = "span"
)

// Span records a single timed operation.
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Name      string
	Service   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Tags      map[string]string
	Err       error
	Status    int
}

// Tracer mints spans and drains completed ones into the structured log.
type Tracer struct {
	service string
	logger  *logging.Logger
	spans   chan *Span
}

// New creates a tracer for the named service and starts its collector.
func New(service string, logger *logging.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1000),
	}

	go t.collect()

	return t
}

// StartSpan opens a span, inheriting the trace from ctx or minting a new one.
// The returned context carries the trace and span IDs for child operations.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	if traceID == "" {
		traceID = TraceID(id.Default().GenerateWithPrefix(tracePrefix))
	}

	parentID, _ := ctx.Value(spanIDKey).(SpanID)

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.Default().GenerateWithPrefix(spanPrefix)),
		ParentID:  parentID,
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)

	return span, ctx
}

// Finish stamps the end time and duration.
func (s *Span) Finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetTag attaches a key/value annotation.
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records a failure on the span.
func (s *Span) SetError(err error) {
	s.Err = err
	s.Status = 500
}

// SetStatus records the HTTP status code.
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// Submit hands a finished span to the collector. Spans are dropped rather
// than blocking the request path when the buffer is full.
func (t *Tracer) Submit(span *Span) {
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

func (t *Tracer) collect() {
	for span := range t.spans {
		t.emit(span)
	}
}

func (t *Tracer) emit(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.String("service", span.Service),
	}

	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}

	if span.Err != nil {
		fields = append(fields, zap.Error(span.Err))
		t.logger.Error("span completed with error", fields...)
		return
	}

	t.logger.Info("span completed", fields...)
}

// Propagation headers. Callers on the LAN can supply their own trace ID to
// correlate shell-side spans with their client logs.
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// ExtractTraceContext reads trace identity from propagation headers.
func ExtractTraceContext(headers map[string]string) (TraceID, SpanID) {
	return TraceID(headers[HeaderTraceID]), SpanID(headers[HeaderSpanID])
}

// InjectTraceContext writes the trace identity from ctx into headers for an
// outbound call, such as an app-store fetch triggered by an install request.
func InjectTraceContext(ctx context.Context, headers map[string]string) {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		headers[HeaderTraceID] = string(traceID)
	}
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		headers[HeaderSpanID] = string(spanID)
	}
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// GetTraceID retrieves the trace ID from context, or "" when untraced.
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// GetSpanID retrieves the span ID from context, or "" when untraced.
func GetSpanID(ctx context.Context) SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		return spanID
	}
	return ""
}
