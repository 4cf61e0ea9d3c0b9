package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/broady/restwire"
)

// RequestIDHeader is the header RequestIDInterceptor sets.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID returns a context whose calls carry id instead of a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// RequestIDInterceptor sets RequestIDHeader on every outbound request that
// does not already carry one. The id comes from the request context when
// present and is a new random UUID otherwise.
func RequestIDInterceptor() restwire.UnaryInterceptor {
	return func(call *restwire.Call, req *http.Request, next restwire.Invoker) (*http.Response, error) {
		if req.Header.Get(RequestIDHeader) == "" {
			id, ok := RequestIDFromContext(req.Context())
			if !ok {
				id = uuid.NewString()
			}
			req.Header.Set(RequestIDHeader, id)
		}
		return next(req)
	}
}
