// Package middlewares carries the cross-cutting HTTP middleware for the
// order API.
package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderXRequestID is the header a caller may use to supply its own
// request id; one is generated when absent.
const HeaderXRequestID = "X-Request-Id"

type contextKey string

// ContextKeyRequestID is the context key under which the request id is
// stored for handlers and logs.
const ContextKeyRequestID contextKey = "request_id"

// Correlation ensures every request carries a request id: taken from the
// incoming header when present, freshly generated otherwise, echoed back on
// the response so clients can quote it.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, requestID)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID extracts the request id placed in ctx by Correlation, empty
// when the middleware did not run.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
