package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/toolrelay/toolrelay/internal/models"
)

// Recovery turns a handler panic into a 500 envelope. It runs outermost, so
// the request id is read back from the response header RequestID set.
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
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", w.Header().Get(RequestIDHeader)).
				Msg("Handler panicked")
			models.WriteEndpointError(w, http.StatusInternalServerError, "Internal server error", r.URL.Path)
		}()
		next.ServeHTTP(w, r)
	})
}
