// handler.go — APIHandler реализует routes.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/goartstore/document-store/internal/api/routes"
)

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	files   *FilesHandler
	health  *HealthHandler
	openapi *OpenAPIHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(files *FilesHandler, health *HealthHandler, openapi *OpenAPIHandler) *APIHandler {
	return &APIHandler{
		files:   files,
		health:  health,
		openapi: openapi,
	}
}

// --- File Operations ---

func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	h.files.ListFiles(w, r)
}

func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

func (h *APIHandler) UploadMultipleFiles(w http.ResponseWriter, r *http.Request) {
	h.files.UploadMultipleFiles(w, r)
}

func (h *APIHandler) ListFilesByCategory(w http.ResponseWriter, r *http.Request, category string) {
	h.files.ListFilesByCategory(w, r, category)
}

func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	h.files.GetFile(w, r, id)
}

func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	h.files.DeleteFile(w, r, id)
}

func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	h.files.DownloadFile(w, r, id)
}

func (h *APIHandler) ViewFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	h.files.ViewFile(w, r, id)
}

// HandleParamError — обработчик ошибок разбора path-параметров для routes.Options.
func (h *APIHandler) HandleParamError(w http.ResponseWriter, r *http.Request, err error) {
	h.files.HandleParamError(w, r, err)
}

// --- Service ---

func (h *APIHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.health.GetHealth(w, r)
}

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.openapi.GetOpenAPI(w, r)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

var _ routes.ServerInterface = (*APIHandler)(nil)
