package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"raindrive/internal/domain"
	"raindrive/internal/service/s3"
)

type trashStore interface {
	SoftDeleteFile(ctx context.Context, ownerID string, id uuid.UUID, at time.Time) error
	SoftDeleteFolder(ctx context.Context, ownerID string, id int64, at time.Time) error
	RestoreFile(ctx context.Context, ownerID string, id uuid.UUID) error
	RestoreFolder(ctx context.Context, ownerID string, id int64) error
	ListTrash(ctx context.Context, ownerID string) ([]domain.Folder, []domain.File, error)
	ExpiredFiles(ctx context.Context, cutoff time.Time) ([]domain.File, error)
	ExpiredFolders(ctx context.Context, cutoff time.Time) ([]domain.Folder, error)
	DeleteFileRow(ctx context.Context, ownerID string, id uuid.UUID) (bool, error)
	DeleteFolderRow(ctx context.Context, ownerID string, id int64) (bool, error)
}

type subtreeWalker interface {
	SubtreeFiles(ctx context.Context, ownerID string, rootID int64) ([]domain.File, error)
}

type fileLookup interface {
	GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (*domain.File, error)
	CountOtherRefs(ctx context.Context, key string, excluding []uuid.UUID) (int64, error)
}

// TrashService drives the active -> trashed -> destroyed lifecycle for both
// entity kinds, including the scheduled retention sweep.
type TrashService struct {
	trash   trashStore
	folders subtreeWalker
	files   fileLookup
	blobs   s3.Storage
	now     func() time.Time
}

func NewTrashService(trash trashStore, folders subtreeWalker, files fileLookup, blobs s3.Storage) *TrashService {
	return &TrashService{
		trash:   trash,
		folders: folders,
		files:   files,
		blobs:   blobs,
		now:     time.Now,
	}
}

func (s *TrashService) SoftDeleteFile(ctx context.Context, ownerID string, id uuid.UUID) error {
	return s.trash.SoftDeleteFile(ctx, ownerID, id, s.now())
}

func (s *TrashService) SoftDeleteFolder(ctx context.Context, ownerID string, id int64) error {
	return s.trash.SoftDeleteFolder(ctx, ownerID, id, s.now())
}

func (s *TrashService) RestoreFile(ctx context.Context, ownerID string, id uuid.UUID) error {
	return s.trash.RestoreFile(ctx, ownerID, id)
}

func (s *TrashService) RestoreFolder(ctx context.Context, ownerID string, id int64) error {
	return s.trash.RestoreFolder(ctx, ownerID, id)
}

func (s *TrashService) List(ctx context.Context, ownerID string) (*domain.TrashContent, error) {
	folders, files, err := s.trash.ListTrash(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &domain.TrashContent{Folders: folders, Files: files}, nil
}

// releaseUnlessAliased drops a blob only when no file row outside the
// doomed set still references its key. Copies alias the same key, so an
// unconditional release would destroy the object a surviving copy points
// at. When the reference count cannot be computed the release is skipped:
// an orphaned blob is recoverable, a destroyed live alias is not.
func (s *TrashService) releaseUnlessAliased(ctx context.Context, key string, doomed []uuid.UUID) {
	refs, err := s.files.CountOtherRefs(ctx, key, doomed)
	if err != nil {
		log.Printf("warning: failed to count references for blob %s, keeping it: %v", key, err)
		return
	}
	if refs > 0 {
		return
	}
	releaseBestEffort(s.blobs, key)
}

// releaseSubtreeBlobs releases the blobs of a doomed subtree's files,
// excluding the whole subtree from the surviving-reference count and
// touching each shared key once.
func (s *TrashService) releaseSubtreeBlobs(ctx context.Context, files []domain.File) {
	doomed := make([]uuid.UUID, len(files))
	for i, file := range files {
		doomed[i] = file.UUID
	}

	seen := make(map[string]bool)
	for _, file := range files {
		if seen[file.StorageKey] {
			continue
		}
		seen[file.StorageKey] = true
		s.releaseUnlessAliased(ctx, file.StorageKey, doomed)
	}
}

// PermanentlyDeleteFile releases the blob best-effort if this row holds the
// last reference to it, then removes the row. The row removal is never
// blocked by a failed release: an orphaned blob beats a phantom file.
func (s *TrashService) PermanentlyDeleteFile(ctx context.Context, ownerID string, id uuid.UUID) error {
	file, err := s.files.GetOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	s.releaseUnlessAliased(ctx, file.StorageKey, []uuid.UUID{file.UUID})

	deleted, err := s.trash.DeleteFileRow(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	return nil
}

// PermanentlyDeleteFolder walks the whole subtree, releases every file's
// blob best-effort unless a row outside the subtree still references it,
// then deletes the folder row and lets the cascade take the descendant
// rows. Keys shared within the subtree are released once.
func (s *TrashService) PermanentlyDeleteFolder(ctx context.Context, ownerID string, id int64) error {
	files, err := s.folders.SubtreeFiles(ctx, ownerID, id)
	if err != nil {
		return err
	}
	s.releaseSubtreeBlobs(ctx, files)

	deleted, err := s.trash.DeleteFolderRow(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	return nil
}

// EmptyTrash permanently deletes everything in the owner's trash and
// returns how many items went. Trashed files are removed first so the
// folder pass never re-releases a blob the file pass already handled.
func (s *TrashService) EmptyTrash(ctx context.Context, ownerID string) (int, error) {
	folders, files, err := s.trash.ListTrash(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, file := range files {
		s.releaseUnlessAliased(ctx, file.StorageKey, []uuid.UUID{file.UUID})
		deleted, err := s.trash.DeleteFileRow(ctx, ownerID, file.UUID)
		if err != nil {
			return count, err
		}
		if deleted {
			count++
		}
	}

	for _, folder := range folders {
		if err := s.deleteFolderIfPresent(ctx, ownerID, folder.ID, &count); err != nil {
			return count, err
		}
	}

	return count, nil
}

// Sweep hard-deletes every trashed item whose soft-delete timestamp is
// older than cutoff, across all users. Files and folders are two
// independent passes; running the file pass first means a file that is both
// individually expired and inside an expired folder has its blob released
// exactly once, and the folder pass silently skips rows the file pass (or a
// cascade) already removed. Re-sweeping is a no-op lookup miss, so the job
// is safe against overlapping runs.
func (s *TrashService) Sweep(ctx context.Context, cutoff time.Time) (*domain.SweepResult, error) {
	result := &domain.SweepResult{}

	expiredFiles, err := s.trash.ExpiredFiles(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired files: %w", err)
	}
	for _, file := range expiredFiles {
		s.releaseUnlessAliased(ctx, file.StorageKey, []uuid.UUID{file.UUID})
		deleted, err := s.trash.DeleteFileRow(ctx, file.OwnerID, file.UUID)
		if err != nil {
			return result, err
		}
		if deleted {
			result.FilesDeleted++
		}
	}

	expiredFolders, err := s.trash.ExpiredFolders(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to find expired folders: %w", err)
	}
	for _, folder := range expiredFolders {
		files, err := s.folders.SubtreeFiles(ctx, folder.OwnerID, folder.ID)
		if err != nil {
			// An expired folder nested inside another expired folder may
			// already be gone via its parent's cascade.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return result, err
		}
		s.releaseSubtreeBlobs(ctx, files)

		deleted, err := s.trash.DeleteFolderRow(ctx, folder.OwnerID, folder.ID)
		if err != nil {
			return result, err
		}
		if deleted {
			result.FoldersDeleted++
		}
	}

	return result, nil
}

func (s *TrashService) deleteFolderIfPresent(ctx context.Context, ownerID string, id int64, count *int) error {
	err := s.PermanentlyDeleteFolder(ctx, ownerID, id)
	if err != nil {
		// A nested trashed folder may already be gone via its parent's
		// cascade; that still counts as emptied.
		if errors.Is(err, domain.ErrNotFound) {
			*count++
			return nil
		}
		return err
	}
	*count++
	return nil
}
