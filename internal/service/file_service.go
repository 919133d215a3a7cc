package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"raindrive/internal/domain"
	"raindrive/internal/service/s3"
)

// copySuffix is inserted before the extension when an item is duplicated.
const copySuffix = " - Copy"

type fileStore interface {
	Create(ctx context.Context, file *domain.File) error
	GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (*domain.File, error)
	UpdateName(ctx context.Context, ownerID string, id uuid.UUID, name string) error
	UpdateFolder(ctx context.Context, ownerID string, id uuid.UUID, folderID *int64) error
	ListRecent(ctx context.Context, ownerID string, limit, offset int) ([]domain.File, error)
	ListByFolder(ctx context.Context, ownerID string, folderID *int64, includeTrashed bool) ([]domain.File, error)
}

type folderLookup interface {
	GetOwned(ctx context.Context, ownerID string, id int64) (*domain.Folder, error)
}

// FileService owns file metadata rows and their pointers into the object
// store. Quota admission happens before Register is reached; this layer only
// validates structure and ownership.
type FileService struct {
	files   fileStore
	folders folderLookup
	blobs   s3.Storage
}

func NewFileService(files fileStore, folders folderLookup, blobs s3.Storage) *FileService {
	return &FileService{files: files, folders: folders, blobs: blobs}
}

// Register records an upload that already completed against the object
// store. folderID nil places the file at the owner's root.
func (s *FileService) Register(ctx context.Context, ownerID, name string, sizeBytes int64, mimeType, storageKey string, folderID *int64) (*domain.File, error) {
	if name == "" || storageKey == "" {
		return nil, fmt.Errorf("%w: file name and storage key are required", domain.ErrInvalidOperation)
	}

	if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	file := &domain.File{
		UUID:       uuid.New(),
		Name:       name,
		MIMEType:   mimeType,
		SizeBytes:  sizeBytes,
		StorageKey: storageKey,
		FolderID:   folderID,
		OwnerID:    ownerID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// Upload pushes the bytes to the object store and registers the metadata
// row. A store failure here is fatal: no row may reference a blob that was
// never written. A failed register tries to undo the blob write so the
// admission and the row stay consistent.
func (s *FileService) Upload(ctx context.Context, ownerID, name, mimeType string, data []byte, folderID *int64) (*domain.File, error) {
	if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("drive/%s/%s", ownerID, uuid.New())
	if err := s.blobs.UploadBytes(key, data); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	file, err := s.Register(ctx, ownerID, name, int64(len(data)), mimeType, key, folderID)
	if err != nil {
		releaseBestEffort(s.blobs, key)
		return nil, err
	}

	return file, nil
}

func (s *FileService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*domain.File, error) {
	return s.files.GetOwned(ctx, ownerID, id)
}

func (s *FileService) Rename(ctx context.Context, ownerID string, id uuid.UUID, newName string) (*domain.File, error) {
	if newName == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidOperation)
	}

	if err := s.files.UpdateName(ctx, ownerID, id, newName); err != nil {
		return nil, err
	}

	return s.files.GetOwned(ctx, ownerID, id)
}

// Move relocates a file. Files are leaves, so no cycle check is needed, but
// the target folder must belong to the same owner.
func (s *FileService) Move(ctx context.Context, ownerID string, id uuid.UUID, targetFolderID *int64) (*domain.File, error) {
	if _, err := s.files.GetOwned(ctx, ownerID, id); err != nil {
		return nil, err
	}

	if err := s.checkFolder(ctx, ownerID, targetFolderID); err != nil {
		return nil, err
	}

	if err := s.files.UpdateFolder(ctx, ownerID, id, targetFolderID); err != nil {
		return nil, err
	}

	return s.files.GetOwned(ctx, ownerID, id)
}

// Copy duplicates the metadata row under a decorated name. The object bytes
// are never duplicated: the store is content-addressed and immutable, so
// both rows alias the same key. targetSet distinguishes "not provided"
// (copy stays in the source folder) from an explicit nil (copy goes to
// root).
func (s *FileService) Copy(ctx context.Context, ownerID string, id uuid.UUID, targetSet bool, targetFolderID *int64) (*domain.File, error) {
	source, err := s.files.GetOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	folderID := source.FolderID
	if targetSet {
		if err := s.checkFolder(ctx, ownerID, targetFolderID); err != nil {
			return nil, err
		}
		folderID = targetFolderID
	}

	copyFile := &domain.File{
		UUID:       uuid.New(),
		Name:       copyName(source.Name),
		MIMEType:   source.MIMEType,
		SizeBytes:  source.SizeBytes,
		StorageKey: source.StorageKey,
		FolderID:   folderID,
		OwnerID:    ownerID,
	}
	if err := s.files.Create(ctx, copyFile); err != nil {
		return nil, err
	}

	return copyFile, nil
}

func (s *FileService) Recent(ctx context.Context, ownerID string, limit, offset int) ([]domain.File, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.files.ListRecent(ctx, ownerID, limit, offset)
}

func (s *FileService) ListByFolder(ctx context.Context, ownerID string, folderID *int64, includeTrashed bool) ([]domain.File, error) {
	return s.files.ListByFolder(ctx, ownerID, folderID, includeTrashed)
}

// DownloadURL resolves the redirect target for a file the owner may read.
func (s *FileService) DownloadURL(ctx context.Context, ownerID string, id uuid.UUID) (string, error) {
	file, err := s.files.GetOwned(ctx, ownerID, id)
	if err != nil {
		return "", err
	}

	return s.blobs.ObjectURL(file.StorageKey), nil
}

func (s *FileService) checkFolder(ctx context.Context, ownerID string, folderID *int64) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folders.GetOwned(ctx, ownerID, *folderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrAccessDenied
		}
		return fmt.Errorf("failed to check target folder: %w", err)
	}
	return nil
}

// copyName inserts the copy marker before the last dot-delimited extension
// segment; names without an extension get the marker appended.
func copyName(name string) string {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return name + copySuffix
	}
	return name[:dot] + copySuffix + name[dot:]
}
