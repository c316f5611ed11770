package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/rcliao/kg-course/internal/logger"
)

// TracerName is the instrumentation scope used by every span in the module.
const TracerName = "github.com/rcliao/kg-course"

// Tracer returns the module tracer from the global provider. Without InitTracing
// this is the no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// InitTracing installs an SDK tracer provider that pretty-prints finished spans
// to w. The returned function flushes and shuts the provider down.
func InitTracing(w io.Writer, service string, log *logger.Logger) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(attribute.String("service.name", service))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	if log != nil {
		log.Debug("tracing initialized", "service", service, "exporter", "stdout")
	}
	return tp.Shutdown, nil
}
