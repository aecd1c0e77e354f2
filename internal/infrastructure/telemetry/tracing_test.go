package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/crosslist/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// installSpanRecorder swaps the global tracer provider for one backed by
// an in-memory recorder, restoring the original on cleanup.
func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func spanAttrMap(s sdktrace.ReadOnlySpan) map[string]any {
	m := make(map[string]any)
	for _, attr := range s.Attributes() {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestStartSpan(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.sync")
	require.NotNil(t, span)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "listing.sync", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "marketplace.end_listing",
		telemetry.WithAttribute(telemetry.SpanAttrPlatform, "ebay"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Equal(t, "ebay", spanAttrMap(spans[0])[telemetry.SpanAttrPlatform])
}

func TestStartServiceSpan(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "sale", "process")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sale.process", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.create_multi")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPlatform, "depop",
		telemetry.SpanAttrPlatformCount, 3,
		"dry_run", false,
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs := spanAttrMap(spans[0])
	assert.Equal(t, "depop", attrs[telemetry.SpanAttrPlatform])
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrPlatformCount])
	assert.Equal(t, false, attrs["dry_run"])
}

func TestSetAttribute_StringerValue(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.delist")
	listingID := uuid.New()
	telemetry.SetAttribute(span, telemetry.SpanAttrListingID, listingID)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, listingID.String(), spanAttrMap(spans[0])[telemetry.SpanAttrListingID])
}

func TestRecordError(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "marketplace.create_listing")
	telemetry.RecordError(span, errors.New("rate limited"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "rate limited", spans[0].Status().Description)

	events := spans[0].Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "exception", events[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.sync")
	telemetry.RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSetOK(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.relist")
	telemetry.SetOK(span)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "sale.process")
	telemetry.AddEvent(span, "cross_delist_started",
		telemetry.SpanAttrProductID, "e3b1c7aa-0f3e-4a51-9c2d-7f2b88a3d901",
		telemetry.SpanAttrPlatformCount, 2,
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "cross_delist_started", events[0].Name)

	attrs := make(map[string]any)
	for _, attr := range events[0].Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrPlatformCount])
}

func TestSpanFromContext(t *testing.T) {
	installSpanRecorder(t)

	// Without a span the no-op span comes back
	assert.NotNil(t, telemetry.SpanFromContext(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "listing.sync")
	defer span.End()

	got := telemetry.SpanFromContext(ctx)
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}

func TestContextWithSpan(t *testing.T) {
	installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.sync")
	defer span.End()

	ctx := telemetry.ContextWithSpan(context.Background(), span)
	got := telemetry.SpanFromContext(ctx)
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}

func TestTraceAndSpanIDs(t *testing.T) {
	installSpanRecorder(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "listing.sync")
	defer span.End()

	assert.Len(t, telemetry.GetTraceID(ctx), 32)
	assert.Len(t, telemetry.GetSpanID(ctx), 16)
}

func TestNestedSpans(t *testing.T) {
	recorder := installSpanRecorder(t)

	ctx, parent := telemetry.StartSpan(context.Background(), "sale.process")
	_, child := telemetry.StartSpan(ctx, "marketplace.end_listing")
	child.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range spans {
		byName[s.Name()] = s
	}
	parentSpan := byName["sale.process"]
	childSpan := byName["marketplace.end_listing"]
	require.NotNil(t, parentSpan)
	require.NotNil(t, childSpan)

	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
}

func TestNilSpanIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, errors.New("ignored"))
		telemetry.SetAttributes(nil, "key", "value")
		telemetry.SetAttribute(nil, "key", "value")
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "ignored", "key", "value")
	})
}

func TestAttributeTypes(t *testing.T) {
	recorder := installSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "listing.sync")
	telemetry.SetAttributes(span,
		"string", "value",
		"int", 42,
		"int64", int64(100),
		"float64", 3.14,
		"bool", true,
		"string_slice", []string{"ebay", "depop"},
		"int_slice", []int{1, 2, 3},
		"int64_slice", []int64{10, 20},
		"float64_slice", []float64{1.1, 2.2},
		"bool_slice", []bool{true, false},
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.GreaterOrEqual(t, len(spans[0].Attributes()), 10)
}

func TestSetAttributes_MalformedPairs(t *testing.T) {
	recorder := installSpanRecorder(t)

	t.Run("trailing key without value is dropped", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "listing.sync")
		telemetry.SetAttributes(span,
			"key1", "value1",
			"key2", "value2",
			"orphan",
		)
		span.End()
	})

	t.Run("non-string key is skipped", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "listing.sync")
		telemetry.SetAttributes(span,
			"valid", "value",
			123, "dropped",
		)
		span.End()
	})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Len(t, spans[0].Attributes(), 2)
	assert.Len(t, spans[1].Attributes(), 1)
}
