package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "requestID"
	// RequestIDHeader is the HTTP header for request ID
	RequestIDHeader = "X-Request-ID"
)

// incoming ids end up in log lines, so only plain tokens are reused
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID returns a middleware that tags each request with an id,
// reusing a well-formed incoming X-Request-ID
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if !requestIDPattern.MatchString(requestID) {
				requestID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
		})
	}
}

// WithRequestID stores id in ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetRequestID extracts the request ID from the request context
func GetRequestID(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}
