// Пакет errors — ответы с ошибками в формате Document Store.
// Единый формат: {"success": false, "code": "...", "message": "...", "error": "..."}.
// Поле error (технические детали) отдаётся только вне production-режима.
// Все HTTP-ответы с ошибками должны проходить через Writer.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// errorBody — тело ответа ошибки.
type errorBody struct {
	Success bool               `json:"success"`
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Error   string             `json:"error,omitempty"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

// Writer записывает ответы ошибок.
// В production-режиме технические детали не отдаются клиенту.
type Writer struct {
	production bool
}

// NewWriter создаёт Writer. production — скрывать ли детали ошибок.
func NewWriter(production bool) *Writer {
	return &Writer{production: production}
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание,
// detail — исходная ошибка (может быть nil).
func (wr *Writer) WriteError(w http.ResponseWriter, statusCode int, code, message string, detail error) {
	body := errorBody{
		Success: false,
		Code:    code,
		Message: message,
	}
	if detail != nil && !wr.production {
		body.Error = detail.Error()
	}

	var verr *model.ValidationError
	if stderrors.As(detail, &verr) {
		body.Fields = verr.Fields
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// FromError выбирает статус и код по таксономии ошибок:
// ValidationError → 400, NotFound → 404, StoreUnavailable → 503, прочее → 500.
// notFoundMessage используется для 404.
func (wr *Writer) FromError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case stderrors.Is(err, model.ErrValidation):
		wr.ValidationError(w, err)
	case stderrors.Is(err, model.ErrNotFound):
		wr.NotFound(w, notFoundMessage, err)
	case stderrors.Is(err, model.ErrStoreUnavailable):
		wr.StoreUnavailable(w, err)
	default:
		wr.InternalError(w, "Внутренняя ошибка сервера", err)
	}
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
// Сообщение валидации адресовано клиенту и отдаётся в любом режиме.
func (wr *Writer) ValidationError(w http.ResponseWriter, err error) {
	wr.WriteError(w, http.StatusBadRequest, CodeValidationError, err.Error(), err)
}

// NotFound — 404 ресурс не найден.
func (wr *Writer) NotFound(w http.ResponseWriter, message string, err error) {
	wr.WriteError(w, http.StatusNotFound, CodeNotFound, message, err)
}

// StoreUnavailable — 503 хранилище недоступно.
func (wr *Writer) StoreUnavailable(w http.ResponseWriter, err error) {
	wr.WriteError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "Хранилище временно недоступно", err)
}

// InternalError — 500 внутренняя ошибка.
func (wr *Writer) InternalError(w http.ResponseWriter, message string, err error) {
	wr.WriteError(w, http.StatusInternalServerError, CodeInternalError, message, err)
}
