package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout returns an HTTP middleware that bounds each request's context.
// The gateway turns an expired deadline into a 504 response. A zero or
// negative d disables the middleware.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
