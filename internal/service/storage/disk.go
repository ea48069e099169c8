package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskStorage хранит блобы как обычные файлы в одной директории.
type DiskStorage struct {
	dir          string
	maxFileSize  int64
	allowedTypes []string
}

// NewDiskStorage создаёт хранилище и директорию данных, если её нет.
func NewDiskStorage(cfg *Config) (*DiskStorage, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", cfg.Dir, err)
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	allowed := cfg.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}

	return &DiskStorage{
		dir:          cfg.Dir,
		maxFileSize:  maxSize,
		allowedTypes: allowed,
	}, nil
}

// Save валидирует тип и размер до обращения к диску, затем пишет поток.
// Паттерн записи: temp файл → copy с лимитом → fsync → atomic rename.
// При любой ошибке temp файл удаляется.
func (s *DiskStorage) Save(reader io.Reader, originalName, mimeType string, declaredSize int64) (*StoredBlob, error) {
	if !slices.Contains(s.allowedTypes, mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, mimeType)
	}
	if declaredSize > s.maxFileSize {
		return nil, fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}

	storageName := s.generateStorageName(originalName)
	fullPath := filepath.Join(s.dir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	// Читаем на один байт больше лимита: лишний байт означает,
	// что клиент прислал больше заявленного размера.
	size, err := io.Copy(f, io.LimitReader(reader, s.maxFileSize+1))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	if size > s.maxFileSize {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to fsync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close blob: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename blob: %w", err)
	}

	return &StoredBlob{
		Path: storageName,
		Size: size,
	}, nil
}

func (s *DiskStorage) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}

	return f, nil
}

func (s *DiskStorage) Remove(path string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, path)
		}
		return fmt.Errorf("failed to remove blob %s: %w", path, err)
	}

	return nil
}

// generateStorageName формирует имя вида {timestamp}_{uuid8}_{name}{ext}.
// Пути никогда не переиспользуются, коллизии исключены за счёт uuid.
func (s *DiskStorage) generateStorageName(originalName string) string {
	base := filepath.Base(filepath.Clean(originalName))
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	name = sanitizeName(name)
	if name == "" {
		name = "file"
	}

	return fmt.Sprintf("%d_%s_%s%s",
		time.Now().UnixMilli(),
		uuid.New().String()[:8],
		name,
		strings.ToLower(ext),
	)
}

// sanitizeName оставляет в имени только безопасные для файловой системы символы.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
