package model

import (
	"mime"
	"strings"
)

// allowedMimeTypes — типы содержимого, разрешённые к загрузке.
var allowedMimeTypes = map[string]struct{}{
	"image/jpeg":         {},
	"image/png":          {},
	"image/gif":          {},
	"image/webp":         {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
	"text/csv":   {},
}

// NormalizeMimeType убирает параметры (charset и т.д.) и приводит тип к нижнему регистру.
// Пустой или нераспознанный заголовок даёт application/octet-stream.
func NormalizeMimeType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Убираем параметры вручную, если заголовок не разбирается целиком
		if idx := strings.Index(contentType, ";"); idx != -1 {
			contentType = contentType[:idx]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// IsAllowedMimeType проверяет, разрешён ли тип содержимого к загрузке.
func IsAllowedMimeType(contentType string) bool {
	_, ok := allowedMimeTypes[NormalizeMimeType(contentType)]
	return ok
}
