package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every registry span.
const TracerName = "github.com/zjrosen/layoutkit/registry"

// Span names.
const (
	SpanBuild          = "registry.build"
	SpanScanPrefix     = "registry.scan."
	SpanCacheLoad      = "registry.cache.load"
	SpanCacheSave      = "registry.cache.save"
	SpanInvalidate     = "registry.invalidate"
	SpanTemplateLoad   = "registry.template.load"
	SpanExtensionScans = SpanScanPrefix + "extension"
)

// Span attribute keys.
const (
	AttrBuildID        = "registry.build.id"
	AttrTier           = "registry.tier"
	AttrSource         = "registry.source"
	AttrRecords        = "registry.records"
	AttrSections       = "registry.sections"
	AttrTemplates      = "registry.templates"
	AttrSnippets       = "registry.snippets"
	AttrExtensionCount = "registry.extensions"
	AttrCacheHit       = "registry.cache.hit"
	AttrEvent          = "registry.event"
	AttrTemplateID     = "registry.template.id"
)

// Event names.
const (
	EventIndexSwapped = "index.swapped"
	EventCacheWritten = "cache.written"
)

// StartSpan starts an internal span on tracer with attrs.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
