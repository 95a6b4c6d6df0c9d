/*
Package tracing provides lightweight request tracing for the shell's debug API.

# Overview

Every request through the HTTP surface gets a span, and the trace identity
follows the request into outbound app-store calls so a slow install can be
read end to end from the structured log. The design borrows OpenTelemetry
concepts (traces, spans, propagation headers) without the SDK: spans land in
the zap log, which is all a single device needs.

# Usage

	tracer := tracing.New("shell", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")

	// Outbound propagation
	headers := make(map[string]string)
	tracing.InjectTraceContext(ctx, headers)

# Propagation

Traces use the X-Trace-ID and X-Span-ID headers. A caller that supplies its
own X-Trace-ID sees that ID on every shell-side span, and the response echoes
the identity back for callers that let the shell mint one.

# Overhead

Completed spans go through a 1000-entry buffered channel to a collector
goroutine; when the buffer is full the span is dropped rather than stalling
the request path.
*/
package tracing
