package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"raindrive/internal/domain"
)

type TrashRepository struct {
	db *sqlx.DB
}

func NewTrashRepository(db *sqlx.DB) *TrashRepository {
	return &TrashRepository{db: db}
}

// SoftDeleteFile stamps the file as trashed. Calling it twice simply
// refreshes the timestamp.
func (r *TrashRepository) SoftDeleteFile(ctx context.Context, ownerID string, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE files
        SET deleted_at = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2 AND owner_id = $3
    `, at, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to move file to trash: %w", err)
	}

	return requireAffected(result)
}

func (r *TrashRepository) SoftDeleteFolder(ctx context.Context, ownerID string, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE folders
        SET deleted_at = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND owner_id = $3
    `, at, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to move folder to trash: %w", err)
	}

	return requireAffected(result)
}

// RestoreFile clears the trash stamp. Restoring an already-active file is a
// no-op, not an error.
func (r *TrashRepository) RestoreFile(ctx context.Context, ownerID string, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE files
        SET deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $1 AND owner_id = $2
    `, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to restore file: %w", err)
	}

	return requireAffected(result)
}

func (r *TrashRepository) RestoreFolder(ctx context.Context, ownerID string, id int64) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE folders
        SET deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to restore folder: %w", err)
	}

	return requireAffected(result)
}

// ListTrash returns the owner's trashed folders and files, each ordered by
// soft-delete timestamp descending.
func (r *TrashRepository) ListTrash(ctx context.Context, ownerID string) ([]domain.Folder, []domain.File, error) {
	folders := []domain.Folder{}
	err := r.db.SelectContext(ctx, &folders, `
        SELECT id, name, owner_id, parent_id, deleted_at, created_at, updated_at
        FROM folders
        WHERE owner_id = $1 AND deleted_at IS NOT NULL
        ORDER BY deleted_at DESC
    `, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list trashed folders: %w", err)
	}

	files := []domain.File{}
	err = r.db.SelectContext(ctx, &files, `
        SELECT uuid, name, mime_type, size_bytes, storage_key, folder_id,
               owner_id, deleted_at, created_at, updated_at
        FROM files
        WHERE owner_id = $1 AND deleted_at IS NOT NULL
        ORDER BY deleted_at DESC
    `, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list trashed files: %w", err)
	}

	return folders, files, nil
}

// ExpiredFiles finds, across all users, every trashed file whose soft-delete
// timestamp is strictly older than cutoff.
func (r *TrashRepository) ExpiredFiles(ctx context.Context, cutoff time.Time) ([]domain.File, error) {
	files := []domain.File{}
	err := r.db.SelectContext(ctx, &files, `
        SELECT uuid, name, mime_type, size_bytes, storage_key, folder_id,
               owner_id, deleted_at, created_at, updated_at
        FROM files
        WHERE deleted_at IS NOT NULL AND deleted_at < $1
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired files: %w", err)
	}

	return files, nil
}

func (r *TrashRepository) ExpiredFolders(ctx context.Context, cutoff time.Time) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	err := r.db.SelectContext(ctx, &folders, `
        SELECT id, name, owner_id, parent_id, deleted_at, created_at, updated_at
        FROM folders
        WHERE deleted_at IS NOT NULL AND deleted_at < $1
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired folders: %w", err)
	}

	return folders, nil
}

// DeleteFileRow removes a file row if it still exists, reporting whether a
// row was deleted. A miss is not an error: the sweep tolerates rows already
// removed by an earlier pass or a cascade.
func (r *TrashRepository) DeleteFileRow(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM files WHERE uuid = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete file row: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// DeleteFolderRow removes a folder row; the database cascade takes its
// descendants and contained files with it.
func (r *TrashRepository) DeleteFolderRow(ctx context.Context, ownerID string, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete folder row: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}
