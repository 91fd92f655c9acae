// health.go — обработчики служебных endpoints Document Store.
// /health — процесс жив + состояние подключения к MongoDB
// /metrics — Prometheus метрики
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/document-store/internal/config"
)

// pingTimeout — ограничение на проверку хранилища в /health.
const pingTimeout = 3 * time.Second

// Pinger — проверка доступности хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler — обработчик служебных endpoints.
type HealthHandler struct {
	db          Pinger
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик служебных endpoints.
// db — проверка MongoDB (может быть nil — database будет disconnected).
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		promHandler: promhttp.Handler(),
	}
}

// healthResponse — ответ /health.
type healthResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// GetHealth — состояние сервиса. Всегда 200: недоступность хранилища
// отражается в поле database, процесс при этом жив.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Success:   true,
		Status:    "ok",
		Database:  "disconnected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err == nil {
			resp.Database = "connected"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
