// Пакет model — доменные модели Document Store.
// FileRecord — метаданные загруженного документа; содержимое хранится
// отдельно, в chunked-хранилище, и связано с записью через BlobID.
package model

import (
	"time"
	"unicode/utf8"
)

// Ограничения полей FileRecord.
const (
	MaxOriginalNameLength = 500
	MaxDescriptionLength  = 1000
)

// FileRecord — запись метаданных файла. Источник истины для category и description;
// копия этих полей в sidecar blob-а носит диагностический характер.
type FileRecord struct {
	// ID — уникальный идентификатор записи (UUID v4), назначается при создании
	ID string `bson:"_id" json:"id"`

	// OriginalName — имя файла при загрузке
	OriginalName string `bson:"originalName" json:"originalName"`

	// MimeType — MIME-тип содержимого
	MimeType string `bson:"mimeType" json:"mimeType"`

	// Size — размер содержимого в байтах
	Size int64 `bson:"size" json:"size"`

	Category Category `bson:"category" json:"category"`

	Description string `bson:"description" json:"description"`

	// BlobID — идентификатор содержимого в blob-хранилище.
	// Назначается один раз при создании, наружу не отдаётся.
	BlobID string `bson:"blobId" json:"-"`

	// UploadDate — дата и время загрузки (UTC)
	UploadDate time.Time `bson:"uploadDate" json:"uploadDate"`
}

// FileView — публичное представление записи (без BlobID)
// с вычисляемым человекочитаемым размером.
type FileView struct {
	ID            string    `json:"id"`
	OriginalName  string    `json:"originalName"`
	MimeType      string    `json:"mimeType"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	Category      Category  `json:"category"`
	Description   string    `json:"description"`
	UploadDate    time.Time `json:"uploadDate"`
}

// View возвращает публичное представление записи.
// Размер форматируется при каждом чтении и не хранится.
func (r *FileRecord) View() FileView {
	return FileView{
		ID:            r.ID,
		OriginalName:  r.OriginalName,
		MimeType:      r.MimeType,
		Size:          r.Size,
		SizeFormatted: FormatSize(r.Size),
		Category:      r.Category,
		Description:   r.Description,
		UploadDate:    r.UploadDate,
	}
}

// Validate проверяет ограничения полей, заполняемых клиентом.
// ID, BlobID и UploadDate проверяются отдельно, так как назначаются сервисом.
// Возвращает *ValidationError со списком всех нарушенных полей или nil.
func (r *FileRecord) Validate() error {
	var fields []FieldError

	switch {
	case r.OriginalName == "":
		fields = append(fields, FieldError{Field: "originalName", Message: "обязательное поле"})
	case utf8.RuneCountInString(r.OriginalName) > MaxOriginalNameLength:
		fields = append(fields, FieldError{Field: "originalName", Message: "длина превышает 500 символов"})
	}

	if r.MimeType == "" {
		fields = append(fields, FieldError{Field: "mimeType", Message: "обязательное поле"})
	}

	if r.Size < 0 {
		fields = append(fields, FieldError{Field: "size", Message: "размер не может быть отрицательным"})
	}

	if !r.Category.IsValid() {
		fields = append(fields, FieldError{Field: "category", Message: "недопустимая категория"})
	}

	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		fields = append(fields, FieldError{Field: "description", Message: "длина превышает 1000 символов"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
