package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"

	"github.com/google/uuid"

	"filedepot/internal/domain"
	"filedepot/internal/repository"
	"filedepot/internal/service/storage"
)

// Определение пользовательских ошибок
var (
	ErrInvalidFile   = errors.New("invalid file")
	ErrAccessDenied  = errors.New("access denied")
	ErrFileNotFound  = errors.New("file not found")
	ErrDatabaseError = errors.New("database operation failed")
)

// FileService представляет сервис для работы с файлами
type FileService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
}

func NewFileService(fileRepo repository.FileRepository, blobStorage storage.Storage) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  blobStorage,
	}
}

// UploadFile загружает файл в хранилище и создаёт запись о нём.
// Сначала пишется блоб, потом запись в БД; при ошибке БД блоб удаляется.
func (s *FileService) UploadFile(
	ctx context.Context,
	header *multipart.FileHeader,
	file multipart.File,
	userID string,
) (*domain.File, error) {
	// Проверяем входные параметры
	if header == nil || file == nil || userID == "" {
		return nil, fmt.Errorf("%w: missing required parameters", ErrInvalidFile)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	blob, err := s.storage.Save(file, header.Filename, contentType, header.Size)
	if err != nil {
		return nil, err
	}

	newFile := &domain.File{
		UUID:        uuid.New(),
		Name:        filepath.Base(filepath.Clean(header.Filename)),
		StoragePath: blob.Path,
		MIMEType:    contentType,
		SizeBytes:   blob.Size,
		OwnerID:     userID,
	}

	if err := s.fileRepo.Create(ctx, newFile); err != nil {
		// При ошибке БД удаляем уже записанный блоб
		if removeErr := s.storage.Remove(blob.Path); removeErr != nil {
			log.Printf("failed to remove blob after db error: %v", removeErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return newFile, nil
}

// GetUserFiles возвращает файлы пользователя, новые первыми.
func (s *FileService) GetUserFiles(ctx context.Context, userID string) ([]domain.File, error) {
	files, err := s.fileRepo.GetByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return files, nil
}

// DownloadFile скачивает файл из хранилища с проверкой владельца.
func (s *FileService) DownloadFile(ctx context.Context, fileUUID uuid.UUID, userID string) (*domain.FileDownload, error) {
	file, err := s.getOwnedFile(ctx, fileUUID, userID)
	if err != nil {
		return nil, err
	}

	content, err := s.storage.Open(file.StoragePath)
	if err != nil {
		// Запись есть, а блоба нет — расхождение данных, для клиента это 404
		if errors.Is(err, storage.ErrBlobNotFound) {
			log.Printf("blob missing for file %s at %s", fileUUID, file.StoragePath)
			return nil, fmt.Errorf("%w: blob missing", ErrFileNotFound)
		}
		return nil, err
	}

	return &domain.FileDownload{
		File:    file,
		Content: content,
	}, nil
}

// DeleteFile удаляет блоб и запись о файле с проверкой владельца.
// Отсутствие блоба не считается фатальным: запись удаляется в любом случае.
func (s *FileService) DeleteFile(ctx context.Context, fileUUID uuid.UUID, userID string) error {
	file, err := s.getOwnedFile(ctx, fileUUID, userID)
	if err != nil {
		return err
	}

	if err := s.storage.Remove(file.StoragePath); err != nil {
		if !errors.Is(err, storage.ErrBlobNotFound) {
			return fmt.Errorf("failed to remove blob: %w", err)
		}
		log.Printf("warning: blob already absent for file %s: %v", fileUUID, err)
	}

	if err := s.fileRepo.Delete(ctx, fileUUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return nil
}

// getOwnedFile получает запись о файле и проверяет права владельца.
func (s *FileService) getOwnedFile(ctx context.Context, fileUUID uuid.UUID, userID string) (*domain.File, error) {
	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if file.OwnerID != userID {
		return nil, ErrAccessDenied
	}

	return file, nil
}
