package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"raindrive/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (name, owner_id, parent_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.Name,
		folder.OwnerID,
		folder.ParentID,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

// GetOwned returns the folder only when it belongs to ownerID; a row owned
// by someone else is indistinguishable from a missing one.
func (r *FolderRepository) GetOwned(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	query := `
        SELECT id, name, owner_id, parent_id, deleted_at, created_at, updated_at
        FROM folders
        WHERE id = $1 AND owner_id = $2`

	err := r.db.GetContext(ctx, &folder, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// ParentID returns the parent pointer of a folder for the upward tree
// walks. ErrNotFound when the folder row does not exist.
func (r *FolderRepository) ParentID(ctx context.Context, id int64) (*int64, error) {
	var parentID *int64
	err := r.db.QueryRowContext(ctx,
		`SELECT parent_id FROM folders WHERE id = $1`, id,
	).Scan(&parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder parent: %w", err)
	}

	return parentID, nil
}

func (r *FolderRepository) UpdateName(ctx context.Context, ownerID string, id int64, name string) error {
	query := `
        UPDATE folders
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND owner_id = $3`

	result, err := r.db.ExecContext(ctx, query, name, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update folder name: %w", err)
	}

	return requireAffected(result)
}

func (r *FolderRepository) UpdateParent(ctx context.Context, ownerID string, id int64, parentID *int64) error {
	query := `
        UPDATE folders
        SET parent_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND owner_id = $3`

	result, err := r.db.ExecContext(ctx, query, parentID, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update folder parent: %w", err)
	}

	return requireAffected(result)
}

// ListChildren returns the owner's folders directly under parentID (nil for
// root), ordered by name ascending, case-insensitive.
func (r *FolderRepository) ListChildren(ctx context.Context, ownerID string, parentID *int64, includeTrashed bool) ([]domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, deleted_at, created_at, updated_at
        FROM folders
        WHERE owner_id = $1
        AND ($2::bigint IS NULL AND parent_id IS NULL OR parent_id = $2)
        AND ($3 OR deleted_at IS NULL)
        ORDER BY lower(name) ASC`

	folders := []domain.Folder{}
	err := r.db.SelectContext(ctx, &folders, query, ownerID, parentID, includeTrashed)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}

	return folders, nil
}

// CountContents counts every child folder and contained file, trashed rows
// included: a trashed child still blocks a quick delete.
func (r *FolderRepository) CountContents(ctx context.Context, ownerID string, id int64) (int64, int64, error) {
	var folders, files int64

	err := r.db.QueryRowContext(ctx, `
        SELECT
            (SELECT COUNT(*) FROM folders WHERE parent_id = $1 AND owner_id = $2),
            (SELECT COUNT(*) FROM files WHERE folder_id = $1 AND owner_id = $2)
    `, id, ownerID).Scan(&folders, &files)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count folder contents: %w", err)
	}

	return folders, files, nil
}

// Delete removes a single folder row. The database cascades to descendant
// folders and contained files; callers that must not cascade enforce the
// empty-folder guard first.
func (r *FolderRepository) Delete(ctx context.Context, ownerID string, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	return requireAffected(result)
}

// SubtreeFiles collects every file anywhere under rootID, the root folder
// itself included, regardless of trash state. Used to release blobs before
// a cascading folder deletion.
func (r *FolderRepository) SubtreeFiles(ctx context.Context, ownerID string, rootID int64) ([]domain.File, error) {
	query := `
        WITH RECURSIVE subfolder AS (
            SELECT id FROM folders
            WHERE id = $1 AND owner_id = $2

            UNION ALL

            SELECT f.id FROM folders f
            INNER JOIN subfolder s ON f.parent_id = s.id
        )
        SELECT uuid, name, mime_type, size_bytes, storage_key, folder_id,
               owner_id, deleted_at, created_at, updated_at
        FROM files
        WHERE folder_id IN (SELECT id FROM subfolder)`

	files := []domain.File{}
	err := r.db.SelectContext(ctx, &files, query, rootID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to collect subtree files: %w", err)
	}

	return files, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
