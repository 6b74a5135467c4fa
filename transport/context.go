package transport

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a request id to ctx. The pipeline sends it in the
// request id header instead of generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id, id != ""
}
