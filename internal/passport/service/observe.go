package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "passport/pkg/domain-errors"
	"passport/pkg/requestcontext"
)

// begin opens a span for operation and returns the finisher that records
// the outcome. Use as:
//
//	ctx, end := s.begin(ctx, "propose", attrs...)
//	defer func() { end(err) }()
func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "passport."+operation, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		defer span.End()
		result := outcome(err)
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, result, start)
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				s.metrics.IncrementConflict(operation)
			}
		}
		if err == nil {
			span.SetStatus(codes.Ok, "")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, result)

		args := []any{
			"operation", operation,
			"code", result,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		}
		for _, a := range attrs {
			args = append(args, string(a.Key), a.Value.Emit())
		}
		switch dErrors.CodeOf(err) {
		case dErrors.CodeInternal, dErrors.CodeInvariantViolation:
			s.logger.ErrorContext(ctx, "passport operation failed", args...)
		case dErrors.CodeUnavailable, dErrors.CodeTimeout:
			s.logger.WarnContext(ctx, "passport operation failed", args...)
		default:
			s.logger.DebugContext(ctx, "passport operation refused", args...)
		}
	}
}

func itemAttrs(passportID, itemID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("passport_id", passportID),
		attribute.String("item_id", itemID),
	}
}
