// storage.go
package storage

import (
	"errors"
	"io"
)

// Ошибки политики приёма и доступа к блобам.
var (
	ErrInvalidType  = errors.New("invalid file type")
	ErrFileTooLarge = errors.New("file size exceeds maximum allowed size")
	ErrBlobNotFound = errors.New("blob not found")
)

// StoredBlob описывает записанный на диск блоб.
// Path — непрозрачный идентификатор, его формирует только хранилище.
type StoredBlob struct {
	Path string
	Size int64
}

// Storage определяет интерфейс для работы с блоб-хранилищем
type Storage interface {
	// Save валидирует тип и размер, затем пишет поток на диск.
	// Читается не больше установленного лимита, независимо от declaredSize.
	Save(reader io.Reader, originalName, mimeType string, declaredSize int64) (*StoredBlob, error)
	// Open открывает блоб для чтения. Вызывающий код обязан закрыть ReadCloser.
	Open(path string) (io.ReadCloser, error)
	// Remove удаляет блоб. Возвращает ErrBlobNotFound, если блоба уже нет.
	Remove(path string) error
}
