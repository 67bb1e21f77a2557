// Package middleware holds HTTP middleware shared across routes.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"certpass/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID for log correlation. An incoming
// X-Request-ID is trusted so upstream proxies can stitch traces together;
// otherwise one is generated. The ID is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
