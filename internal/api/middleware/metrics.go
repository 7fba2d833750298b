package middleware

import (
	"net/http"
	"time"
)

type HTTPObserver interface {
	ObserveHTTP(method, handler string, status int, elapsed time.Duration)
}

// Metrics records request counts and latency by route pattern.
func Metrics(observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			observer.ObserveHTTP(r.Method, routePattern(r), rec.statusCode(), time.Since(start))
		})
	}
}
