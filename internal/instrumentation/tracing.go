package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for meetscribe.
const TracerName = "github.com/teemow/meetscribe"

// Span attribute keys.
const (
	// SpanAttrEndpoint is the backend API endpoint name.
	SpanAttrEndpoint = "meetscribe.api.endpoint"

	// SpanAttrMeetingID is the meeting identifier a request is scoped to.
	SpanAttrMeetingID = "meetscribe.meeting_id"

	// SpanAttrFileID is the transcript file identifier.
	SpanAttrFileID = "meetscribe.file_id"

	// SpanAttrScreen is the navigation screen.
	SpanAttrScreen = "meetscribe.screen"
)

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartAPISpan starts a client span for a backend API call.
func StartAPISpan(ctx context.Context, endpoint string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrEndpoint, endpoint))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "api."+endpoint,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// MeetingAttr returns the span attribute for a meeting identifier.
func MeetingAttr(id string) attribute.KeyValue {
	return attribute.String(SpanAttrMeetingID, id)
}

// FileAttr returns the span attribute for a transcript file identifier.
func FileAttr(id string) attribute.KeyValue {
	return attribute.String(SpanAttrFileID, id)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
