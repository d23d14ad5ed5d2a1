package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/railwatch/delay-tracker/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID stamps every request with a correlation id, reusing one supplied
// by an upstream proxy if present.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
