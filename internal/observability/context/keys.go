package context

import "context"

type contextKey string

const (
	requestIDKey    contextKey = "observability_request_id"
	locationCodeKey contextKey = "observability_location_code"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithLocationCode(ctx context.Context, locationCode string) context.Context {
	if ctx == nil || locationCode == "" {
		return ctx
	}
	return context.WithValue(ctx, locationCodeKey, locationCode)
}

func LocationCodeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(locationCodeKey).(string)
	return value
}
