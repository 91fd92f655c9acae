package model

import "io"

// BlobMetadata — sidecar, сохраняемый вместе с содержимым файла.
// Category и Description дублируются для диагностики; источник истины — FileRecord.
type BlobMetadata struct {
	ContentType string   `bson:"contentType"`
	Category    Category `bson:"category"`
	Description string   `bson:"description,omitempty"`
}

// Blob — открытый поток содержимого файла. Вызывающий обязан закрыть Reader.
type Blob struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// ListFilter — параметры выборки списка записей.
// Category == nil — без фильтра.
type ListFilter struct {
	Category *Category
}
