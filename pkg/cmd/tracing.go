package cmd

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/shopflow/pkg/otelhelper"
)

// NewTracer exports spans over OTLP/HTTP when enabled and records nothing otherwise.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, logger *slog.Logger, enabled bool, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	if !enabled {
		return otelhelper.NoopTracer(serviceName), func(context.Context) error { return nil }, nil
	}

	logger.InfoContext(ctx, "Exporting traces", "service", serviceName)

	return otelhelper.NewTracer(ctx, serviceName)
}
