package middleware

import (
	"net/http"
	"runtime/debug"

	"moby-metaserver/pkg/logging/logging"

	"go.uber.org/zap"
)

// errorBody is the launcher's generic failure envelope.
const errorBody = `{"result":0,"status":"Error"}`

// Recoverer logs a panic and answers 500 with the error envelope.
func Recoverer() func(http.Handler) http.Handler {
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

				logger := logging.L(r.Context())
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(errorBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
