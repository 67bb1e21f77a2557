package middleware

import (
	"net/http"
	"time"

	"certpass/pkg/requestcontext"
)

// RequestTime captures one timestamp at the start of the request so every
// operation inside it (issue dates, audit events, verification times) agrees
// on "now".
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
