package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hawksec/hawk/internal/pkg/logger"
)

type logFieldsKey struct{}

// logFields collects values inner middleware wants on the access log line
type logFields struct {
	mu     sync.Mutex
	values map[string]interface{}
}

// AddLogField puts key on the access log line of r
func AddLogField(r *http.Request, key string, value interface{}) {
	lf, ok := r.Context().Value(logFieldsKey{}).(*logFields)
	if !ok {
		return
	}
	lf.mu.Lock()
	lf.values[key] = value
	lf.mu.Unlock()
}

// Logger writes one access log line per request and puts a request-scoped
// logger into the context for handlers
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			lf := &logFields{values: make(map[string]interface{})}

			reqLog := log.With("request_id", GetRequestID(r))
			ctx := context.WithValue(reqLog.IntoContext(r.Context()), logFieldsKey{}, lf)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			lf.mu.Lock()
			fields := lf.values
			lf.mu.Unlock()
			fields["method"] = r.Method
			fields["path"] = r.URL.Path
			fields["query"] = r.URL.RawQuery
			fields["status"] = status
			fields["duration"] = time.Since(start).Milliseconds()
			fields["bytes"] = ww.BytesWritten()
			fields["ip"] = r.RemoteAddr
			fields["user_agent"] = r.UserAgent()

			entry := reqLog.WithFields(fields)
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("HTTP request")
			case status >= http.StatusBadRequest:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
		})
	}
}
