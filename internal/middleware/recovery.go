package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/outflow-ledger/internal/handler"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
)

// Recovery turns a panic in a handler into a 500 envelope so one bad request
// cannot take the listener down.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.FromContext(r.Context()).Error("panic recovered",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			handler.RespondAppError(w, handler.ErrInternalError, nil)
		}()
		next.ServeHTTP(w, r)
	})
}
