// metrics.go — Prometheus HTTP метрики для Document Store.
// Регистрирует метрики: ds_http_requests_total, ds_http_request_duration_seconds.
// Бизнес-метрики (ds_operations_total, ds_consistency_gaps_total и др.)
// обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ds_http_requests_total",
			Help: "Общее количество HTTP-запросов к Document Store",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ds_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Document Store в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// OperationsTotal — общее количество файловых операций.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ds_operations_total",
			Help: "Общее количество файловых операций",
		},
		[]string{"operation", "result"},
	)

	// ConsistencyGapsTotal — расхождения между метаданными и blob-хранилищем.
	// kind: orphan_blob, orphan_blob_compensated, record_without_blob,
	// missing_blob_on_delete, dangling_record.
	ConsistencyGapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ds_consistency_gaps_total",
			Help: "Количество обнаруженных расхождений между метаданными и содержимым файлов",
		},
		[]string{"kind"},
	)

	// UploadedBytesTotal — объём успешно загруженных данных.
	UploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ds_uploaded_bytes_total",
			Help: "Объём успешно загруженных данных в байтах",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath заменяет идентификаторы и категории в пути шаблонами
// для предотвращения взрывного роста кардинальности метрик.
// /files/a1b2c3d4-e5f6-7890-abcd-ef1234567890/view → /files/{id}/view
func normalizePath(path string) string {
	switch path {
	case "/health", "/metrics", "/openapi.json", "/files", "/files/upload", "/files/upload-multiple":
		return path
	}

	rest, ok := strings.CutPrefix(path, "/files/")
	if !ok {
		return "other"
	}

	if _, ok := strings.CutPrefix(rest, "category/"); ok {
		return "/files/category/{category}"
	}

	id, suffix, _ := strings.Cut(rest, "/")
	if uuid.Validate(id) != nil {
		return "other"
	}

	switch suffix {
	case "":
		return "/files/{id}"
	case "download":
		return "/files/{id}/download"
	case "view":
		return "/files/{id}/view"
	}
	return "other"
}
