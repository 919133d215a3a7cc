package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"raindrive/internal/domain"
)

type userResolver interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Invalidator is notified after every successful mutation so external
// callers can drop cached views. Invalidation is the only externally
// observable side effect beyond the data mutation itself.
type Invalidator func(path string)

// DriveService is the single integration surface the presentation layer
// talks to. Every operation resolves the authenticated principal first,
// then performs ownership-scoped lookups, then delegates to the folder,
// file, trash and quota components.
type DriveService struct {
	users      userResolver
	folders    *FolderService
	files      *FileService
	trash      *TrashService
	quota      *QuotaService
	invalidate Invalidator
}

func NewDriveService(
	users userResolver,
	folders *FolderService,
	files *FileService,
	trash *TrashService,
	quota *QuotaService,
	invalidate Invalidator,
) *DriveService {
	if invalidate == nil {
		invalidate = func(string) {}
	}
	return &DriveService{
		users:      users,
		folders:    folders,
		files:      files,
		trash:      trash,
		quota:      quota,
		invalidate: invalidate,
	}
}

// resolve maps the principal email to the user row. An empty principal
// means no valid session. A valid session without a user row is a broken
// precondition, not a user error.
func (s *DriveService) resolve(ctx context.Context, principal string) (*domain.User, error) {
	if principal == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, principal)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deliberately not wrapped as ErrNotFound: this is an internal
			// inconsistency, not a lookup miss the caller can act on.
			return nil, fmt.Errorf("no user row for authenticated principal %s", principal)
		}
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}

	return user, nil
}

func (s *DriveService) CreateFolder(ctx context.Context, principal, name string, parentID *int64) (*domain.Folder, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	folder, err := s.folders.Create(ctx, user.ID, name, parentID)
	if err != nil {
		return nil, err
	}

	s.invalidate("/drive")
	return folder, nil
}

// FolderContent lists a folder's child folders and files. A nil folderID
// addresses the owner's root.
func (s *DriveService) FolderContent(ctx context.Context, principal string, folderID *int64) (*domain.FolderContent, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	content := &domain.FolderContent{}
	if folderID != nil {
		folder, err := s.folders.Get(ctx, user.ID, *folderID)
		if err != nil {
			return nil, err
		}
		content.Folder = *folder
	}

	content.Folders, err = s.folders.ListChildren(ctx, user.ID, folderID, false)
	if err != nil {
		return nil, err
	}
	content.Files, err = s.files.ListByFolder(ctx, user.ID, folderID, false)
	if err != nil {
		return nil, err
	}

	return content, nil
}

func (s *DriveService) FolderPath(ctx context.Context, principal string, folderID int64) ([]domain.Folder, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	return s.folders.PathTo(ctx, user.ID, folderID)
}

// RenameItem renames a file or folder addressed by its string id.
func (s *DriveService) RenameItem(ctx context.Context, principal, itemID string, kind domain.ItemKind, newName string) (any, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	var renamed any
	switch kind {
	case domain.KindFile:
		fileID, err := parseFileID(itemID)
		if err != nil {
			return nil, err
		}
		renamed, err = s.files.Rename(ctx, user.ID, fileID, newName)
		if err != nil {
			return nil, err
		}
	case domain.KindFolder:
		folderID, err := parseFolderID(itemID)
		if err != nil {
			return nil, err
		}
		renamed, err = s.folders.Rename(ctx, user.ID, folderID, newName)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown item kind %q", domain.ErrInvalidOperation, kind)
	}

	s.invalidate("/drive")
	return renamed, nil
}

// MoveItem reparents a file or folder. targetParentID nil moves to root.
func (s *DriveService) MoveItem(ctx context.Context, principal, itemID string, kind domain.ItemKind, targetParentID *int64) (any, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	var moved any
	switch kind {
	case domain.KindFile:
		fileID, err := parseFileID(itemID)
		if err != nil {
			return nil, err
		}
		moved, err = s.files.Move(ctx, user.ID, fileID, targetParentID)
		if err != nil {
			return nil, err
		}
	case domain.KindFolder:
		folderID, err := parseFolderID(itemID)
		if err != nil {
			return nil, err
		}
		moved, err = s.folders.Move(ctx, user.ID, folderID, targetParentID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown item kind %q", domain.ErrInvalidOperation, kind)
	}

	s.invalidate("/drive")
	return moved, nil
}

// CopyItem duplicates a file's metadata row (the blob is aliased, never
// copied) or shallow-copies a folder. targetSet distinguishes an absent
// target (copy lands beside the source) from an explicit null (root).
func (s *DriveService) CopyItem(ctx context.Context, principal, itemID string, kind domain.ItemKind, targetSet bool, targetFolderID *int64) (any, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	var copied any
	switch kind {
	case domain.KindFile:
		fileID, err := parseFileID(itemID)
		if err != nil {
			return nil, err
		}
		copied, err = s.files.Copy(ctx, user.ID, fileID, targetSet, targetFolderID)
		if err != nil {
			return nil, err
		}
	case domain.KindFolder:
		folderID, err := parseFolderID(itemID)
		if err != nil {
			return nil, err
		}
		copied, err = s.folders.ShallowCopy(ctx, user.ID, folderID, targetSet, targetFolderID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown item kind %q", domain.ErrInvalidOperation, kind)
	}

	s.invalidate("/drive")
	return copied, nil
}

func (s *DriveService) SoftDelete(ctx context.Context, principal, itemID string, kind domain.ItemKind) error {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return err
	}

	if err := s.withKind(ctx, user.ID, itemID, kind, s.trash.SoftDeleteFile, s.trash.SoftDeleteFolder); err != nil {
		return err
	}

	s.invalidate("/drive")
	return nil
}

func (s *DriveService) RestoreItem(ctx context.Context, principal, itemID string, kind domain.ItemKind) error {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return err
	}

	if err := s.withKind(ctx, user.ID, itemID, kind, s.trash.RestoreFile, s.trash.RestoreFolder); err != nil {
		return err
	}

	s.invalidate("/drive")
	s.invalidate("/drive/trash")
	return nil
}

func (s *DriveService) PermanentlyDelete(ctx context.Context, principal, itemID string, kind domain.ItemKind) error {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return err
	}

	if err := s.withKind(ctx, user.ID, itemID, kind, s.trash.PermanentlyDeleteFile, s.trash.PermanentlyDeleteFolder); err != nil {
		return err
	}

	s.invalidate("/drive/trash")
	return nil
}

// HardDeleteFolder removes a folder immediately, refusing if it has any
// contents. This is the quick-delete path and stays distinct from the
// recursive PermanentlyDelete.
func (s *DriveService) HardDeleteFolder(ctx context.Context, principal string, folderID int64) error {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return err
	}

	if err := s.folders.HardDelete(ctx, user.ID, folderID); err != nil {
		return err
	}

	s.invalidate("/drive")
	return nil
}

func (s *DriveService) EmptyTrash(ctx context.Context, principal string) (int, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return 0, err
	}

	count, err := s.trash.EmptyTrash(ctx, user.ID)
	if err != nil {
		return count, err
	}

	s.invalidate("/drive/trash")
	return count, nil
}

// ListTrash degrades to an empty listing when no principal is present.
func (s *DriveService) ListTrash(ctx context.Context, principal string) (*domain.TrashContent, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return &domain.TrashContent{Folders: []domain.Folder{}, Files: []domain.File{}}, nil
		}
		return nil, err
	}

	return s.trash.List(ctx, user.ID)
}

// RecentFiles degrades to an empty listing when no principal is present.
func (s *DriveService) RecentFiles(ctx context.Context, principal string, limit, offset int) ([]domain.File, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return []domain.File{}, nil
		}
		return nil, err
	}

	return s.files.Recent(ctx, user.ID, limit, offset)
}

// Usage degrades to zero when no principal is present.
func (s *DriveService) Usage(ctx context.Context, principal string) (int64, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return 0, nil
		}
		return 0, err
	}

	return s.quota.Usage(ctx, user.ID)
}

func (s *DriveService) QuotaInfo(ctx context.Context, principal string) (*domain.QuotaInfo, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	return s.quota.Info(ctx, user.ID)
}

// RegisterFile admits the upload against the quota, then records the
// metadata row for an object that already reached the store. Admission and
// registration are separate steps, not one atomic reservation.
func (s *DriveService) RegisterFile(ctx context.Context, principal, name string, sizeBytes int64, mimeType, storageKey string, folderID *int64) (*domain.File, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	if err := s.quota.Admit(ctx, user.ID, sizeBytes); err != nil {
		return nil, err
	}

	file, err := s.files.Register(ctx, user.ID, name, sizeBytes, mimeType, storageKey, folderID)
	if err != nil {
		return nil, err
	}

	s.invalidate("/drive")
	return file, nil
}

// UploadFile admits, stores the bytes and registers the row in one call.
func (s *DriveService) UploadFile(ctx context.Context, principal, name, mimeType string, data []byte, folderID *int64) (*domain.File, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	if err := s.quota.Admit(ctx, user.ID, int64(len(data))); err != nil {
		return nil, err
	}

	file, err := s.files.Upload(ctx, user.ID, name, mimeType, data, folderID)
	if err != nil {
		return nil, err
	}

	s.invalidate("/drive")
	return file, nil
}

// DownloadURL resolves the redirect target for a file the principal owns.
func (s *DriveService) DownloadURL(ctx context.Context, principal string, fileID uuid.UUID) (string, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return "", err
	}

	return s.files.DownloadURL(ctx, user.ID, fileID)
}

// SweepExpiredTrash is the scheduled reclamation entry point; it takes a
// cutoff rather than a principal because it runs across all users.
func (s *DriveService) SweepExpiredTrash(ctx context.Context, cutoff time.Time) (*domain.SweepResult, error) {
	return s.trash.Sweep(ctx, cutoff)
}

func (s *DriveService) withKind(
	ctx context.Context,
	ownerID, itemID string,
	kind domain.ItemKind,
	fileOp func(context.Context, string, uuid.UUID) error,
	folderOp func(context.Context, string, int64) error,
) error {
	switch kind {
	case domain.KindFile:
		fileID, err := parseFileID(itemID)
		if err != nil {
			return err
		}
		return fileOp(ctx, ownerID, fileID)
	case domain.KindFolder:
		folderID, err := parseFolderID(itemID)
		if err != nil {
			return err
		}
		return folderOp(ctx, ownerID, folderID)
	default:
		return fmt.Errorf("%w: unknown item kind %q", domain.ErrInvalidOperation, kind)
	}
}

func parseFileID(itemID string) (uuid.UUID, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}

func parseFolderID(itemID string) (int64, error) {
	id, err := strconv.ParseInt(itemID, 10, 64)
	if err != nil {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
