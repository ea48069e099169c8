package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type File struct {
	UUID        uuid.UUID `json:"uuid" db:"uuid"`
	Name        string    `json:"name" db:"name"`
	StoragePath string    `json:"-" db:"storage_path"`
	MIMEType    string    `json:"mime_type" db:"mime_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FileDownload содержит метаданные файла и поток его содержимого.
// Вызывающий код обязан закрыть Content.
type FileDownload struct {
	File    *File
	Content io.ReadCloser
}

// FileUploadResponse представляет ответ на загрузку файла
type FileUploadResponse struct {
	UUID      uuid.UUID `json:"uuid"`
	Name      string    `json:"name"`
	MIMEType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
