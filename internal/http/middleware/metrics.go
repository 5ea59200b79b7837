package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/snapfood/internal/metrics"
)

// Metrics учитывает запрос в Prometheus по шаблону маршрута chi.
// Шаблон известен только после маршрутизации, поэтому читается после next.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			metrics.ObserveHTTP(r.Method, route, sw.code(), time.Since(start))
		})
	}
}
