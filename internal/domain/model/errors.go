package model

import (
	"errors"
	"strings"
)

// Таксономия ошибок, общая для хранилищ, сервиса и HTTP-слоя.
var (
	// ErrNotFound — запись или blob не найдены.
	ErrNotFound = errors.New("не найдено")
	// ErrStoreUnavailable — хранилище недоступно (подключение, таймаут).
	ErrStoreUnavailable = errors.New("хранилище недоступно")
	// ErrValidation — некорректные входные данные.
	// *ValidationError сопоставляется с ним через errors.Is.
	ErrValidation = errors.New("ошибка валидации")
)

// FieldError — нарушение ограничения одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError перечисляет все нарушенные поля.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError создаёт ошибку валидации для одного поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Is позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
