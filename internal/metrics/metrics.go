// metrics — Prometheus-метрики HTTP-слоя и сессий.
// Регистрируются в глобальном реестре и отдаются через /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты auth-событий.
const (
	ResultOK   = "ok"
	ResultFail = "fail"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapfood",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapfood",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapfood",
		Name:      "auth_events_total",
		Help:      "Session operations (register/login/refresh/logout) by result.",
	}, []string{"event", "result"})

	tokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snapfood",
		Name:      "refresh_tokens_purged_total",
		Help:      "Refresh tokens deleted by the janitor.",
	})
)

// ObserveHTTP учитывает завершённый HTTP-запрос.
// route — шаблон маршрута chi, а не сырой путь, чтобы не плодить метки.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// AuthEvent учитывает операцию сессии.
func AuthEvent(event string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFail
	}

	authEvents.WithLabelValues(event, result).Inc()
}

// TokensPurged учитывает удалённые janitor'ом токены.
func TokensPurged(n int64) {
	if n > 0 {
		tokensPurged.Add(float64(n))
	}
}
