package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tenantdb"

// StartProvisionSpan starts a span for one provisioning run.
func StartProvisionSpan(ctx context.Context, orgID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provision",
		trace.WithAttributes(
			attribute.String("org.id", orgID),
		),
	)
}

// StartProvisionStepSpan starts a span for one step within a provisioning run.
func StartProvisionStepSpan(ctx context.Context, step, projectID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provision."+step,
		trace.WithAttributes(
			attribute.String("infra.project_id", projectID),
		),
	)
}
