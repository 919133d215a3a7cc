package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"raindrive/internal/domain"
)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (uuid, name, mime_type, size_bytes, storage_key, folder_id, owner_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.UUID,
		file.Name,
		file.MIMEType,
		file.SizeBytes,
		file.StorageKey,
		file.FolderID,
		file.OwnerID,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

func (r *FileRepository) GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT uuid, name, mime_type, size_bytes, storage_key, folder_id,
               owner_id, deleted_at, created_at, updated_at
        FROM files
        WHERE uuid = $1 AND owner_id = $2`

	err := r.db.GetContext(ctx, &file, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) UpdateName(ctx context.Context, ownerID string, id uuid.UUID, name string) error {
	query := `
        UPDATE files
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2 AND owner_id = $3`

	result, err := r.db.ExecContext(ctx, query, name, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update file name: %w", err)
	}

	return requireAffected(result)
}

func (r *FileRepository) UpdateFolder(ctx context.Context, ownerID string, id uuid.UUID, folderID *int64) error {
	query := `
        UPDATE files
        SET folder_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2 AND owner_id = $3`

	result, err := r.db.ExecContext(ctx, query, folderID, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update file folder: %w", err)
	}

	return requireAffected(result)
}

// ListRecent returns the owner's non-trashed files ordered by updated_at
// descending, for the recent view.
func (r *FileRepository) ListRecent(ctx context.Context, ownerID string, limit, offset int) ([]domain.File, error) {
	query := `
        SELECT uuid, name, mime_type, size_bytes, storage_key, folder_id,
               owner_id, deleted_at, created_at, updated_at
        FROM files
        WHERE owner_id = $1 AND deleted_at IS NULL
        ORDER BY updated_at DESC
        LIMIT $2 OFFSET $3`

	files := []domain.File{}
	err := r.db.SelectContext(ctx, &files, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) ListByFolder(ctx context.Context, ownerID string, folderID *int64, includeTrashed bool) ([]domain.File, error) {
	query := `
        SELECT uuid, name, mime_type, size_bytes, storage_key, folder_id,
               owner_id, deleted_at, created_at, updated_at
        FROM files
        WHERE owner_id = $1
        AND ($2::bigint IS NULL AND folder_id IS NULL OR folder_id = $2)
        AND ($3 OR deleted_at IS NULL)
        ORDER BY lower(name) ASC`

	files := []domain.File{}
	err := r.db.SelectContext(ctx, &files, query, ownerID, folderID, includeTrashed)
	if err != nil {
		return nil, fmt.Errorf("failed to list files in folder: %w", err)
	}

	return files, nil
}

// CountOtherRefs reports how many file rows outside the excluded set still
// reference the given storage key. Copies alias keys, so deletion paths
// consult this before releasing a blob. Trashed rows count too: a trashed
// copy can be restored and must keep its object.
func (r *FileRepository) CountOtherRefs(ctx context.Context, key string, excluding []uuid.UUID) (int64, error) {
	ids := make([]string, len(excluding))
	for i, id := range excluding {
		ids[i] = id.String()
	}

	var count int64
	query := `
        SELECT COUNT(*)
        FROM files
        WHERE storage_key = $1 AND NOT (uuid::text = ANY($2))`

	err := r.db.GetContext(ctx, &count, query, key, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to count storage key references: %w", err)
	}

	return count, nil
}

// Usage recomputes the owner's stored bytes from live rows on every call.
// Trashed files are excluded, so soft-delete frees quota immediately.
func (r *FileRepository) Usage(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(size_bytes), 0)
        FROM files
        WHERE owner_id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &total, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute storage usage: %w", err)
	}

	return total, nil
}
