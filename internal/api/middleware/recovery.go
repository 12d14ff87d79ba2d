package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// Recovery returns a middleware that turns a handler panic into a 500. A
// panic inside an event stream only ends that stream; its headers are
// already on the wire.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				reqLog := logger.FromContext(r.Context(), log)
				fields := map[string]interface{}{
					"panic":  fmt.Sprint(rec),
					"stack":  string(debug.Stack()),
					"method": r.Method,
					"path":   r.URL.Path,
				}
				reqLog.WithFields(fields).Error("Panic recovered")

				if w.Header().Get("Content-Type") == "text/event-stream" {
					return
				}
				utils.WriteError(w, errors.Internal("Internal server error", fmt.Errorf("panic: %v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
