package backend

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики вызовов backend.
var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kb_backend_requests_total",
			Help: "Общее количество запросов консоли к backend Krishibazar",
		},
		[]string{"method", "endpoint", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kb_backend_request_duration_seconds",
			Help:    "Длительность запросов к backend в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	backendRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kb_backend_retries_total",
			Help: "Количество повторов идемпотентных запросов к backend",
		},
		[]string{"endpoint"},
	)
)

// normalizeEndpoint заменяет числовые сегменты пути на {id}
// для ограничения кардинальности меток.
// /admin/investments/42/confirm → /admin/investments/{id}/confirm
func normalizeEndpoint(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s != "" && isDigits(s) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
