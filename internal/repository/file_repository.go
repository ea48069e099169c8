package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"filedepot/internal/domain"
)

// ErrNotFound — запись не найдена.
var ErrNotFound = errors.New("record not found")

// FileRepository определяет операции над метаданными файлов.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByUUID(ctx context.Context, uuid uuid.UUID) (*domain.File, error)
	GetByOwner(ctx context.Context, ownerID string) ([]domain.File, error)
	Delete(ctx context.Context, uuid uuid.UUID) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *domain.File) error {
	if file.UUID == uuid.Nil || file.Name == "" || file.StoragePath == "" ||
		file.MIMEType == "" || file.OwnerID == "" {
		return fmt.Errorf("missing required file fields")
	}

	query := `
        INSERT INTO files (uuid, name, storage_path, mime_type, size_bytes, owner_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.UUID,
		file.Name,
		file.StoragePath,
		file.MIMEType,
		file.SizeBytes,
		file.OwnerID,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}

	return nil
}

func (r *fileRepository) GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `SELECT * FROM files WHERE uuid = $1`

	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &file, nil
}

// GetByOwner возвращает файлы пользователя, новые первыми.
func (r *fileRepository) GetByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	files := []domain.File{}
	query := `SELECT * FROM files WHERE owner_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &files, query, ownerID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) Delete(ctx context.Context, fileUUID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE uuid = $1`, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
