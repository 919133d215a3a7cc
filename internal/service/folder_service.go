package service

import (
	"context"
	"errors"
	"fmt"

	"raindrive/internal/domain"
)

// maxTreeDepth caps every upward parent walk. A well-formed tree never gets
// close; hitting the cap means the persisted forest is corrupted.
const maxTreeDepth = 1024

type folderStore interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetOwned(ctx context.Context, ownerID string, id int64) (*domain.Folder, error)
	ParentID(ctx context.Context, id int64) (*int64, error)
	UpdateName(ctx context.Context, ownerID string, id int64, name string) error
	UpdateParent(ctx context.Context, ownerID string, id int64, parentID *int64) error
	ListChildren(ctx context.Context, ownerID string, parentID *int64, includeTrashed bool) ([]domain.Folder, error)
	CountContents(ctx context.Context, ownerID string, id int64) (int64, int64, error)
	Delete(ctx context.Context, ownerID string, id int64) error
}

// FolderService owns the folder tree: creation, renames, reparenting with
// cycle detection, and the hierarchy queries everything else builds on.
type FolderService struct {
	folders folderStore
}

func NewFolderService(folders folderStore) *FolderService {
	return &FolderService{folders: folders}
}

// Create inserts a folder under parentID (nil for root). A non-nil parent
// must already belong to the same owner; a parent that is missing or owned
// by someone else fails with ErrAccessDenied.
func (s *FolderService) Create(ctx context.Context, ownerID, name string, parentID *int64) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrInvalidOperation)
	}

	if parentID != nil {
		if _, err := s.folders.GetOwned(ctx, ownerID, *parentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrAccessDenied
			}
			return nil, fmt.Errorf("failed to check parent folder: %w", err)
		}
	}

	folder := &domain.Folder{
		Name:     name,
		OwnerID:  ownerID,
		ParentID: parentID,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

func (s *FolderService) Get(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	return s.folders.GetOwned(ctx, ownerID, id)
}

func (s *FolderService) Rename(ctx context.Context, ownerID string, id int64, newName string) (*domain.Folder, error) {
	if newName == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrInvalidOperation)
	}

	if err := s.folders.UpdateName(ctx, ownerID, id, newName); err != nil {
		return nil, err
	}

	return s.folders.GetOwned(ctx, ownerID, id)
}

// Move reparents a folder. Moving a folder into itself or into any of its
// own descendants would detach the subtree into a cycle, so both are
// rejected before the write.
func (s *FolderService) Move(ctx context.Context, ownerID string, id int64, targetParentID *int64) (*domain.Folder, error) {
	if _, err := s.folders.GetOwned(ctx, ownerID, id); err != nil {
		return nil, err
	}

	if targetParentID != nil {
		if *targetParentID == id {
			return nil, fmt.Errorf("%w: cannot move a folder into itself", domain.ErrInvalidOperation)
		}
		if _, err := s.folders.GetOwned(ctx, ownerID, *targetParentID); err != nil {
			return nil, err
		}

		descendant, err := s.isDescendant(ctx, *targetParentID, id)
		if err != nil {
			return nil, err
		}
		if descendant {
			return nil, fmt.Errorf("%w: cannot move a folder into its own subtree", domain.ErrInvalidOperation)
		}
	}

	if err := s.folders.UpdateParent(ctx, ownerID, id, targetParentID); err != nil {
		return nil, err
	}

	return s.folders.GetOwned(ctx, ownerID, id)
}

// isDescendant walks upward from nodeID following parent pointers and
// reports whether ancestorID is on the path to the root. The walk keeps a
// visited set and a depth cap so a corrupted store terminates with
// ErrTreeCorrupted instead of looping forever.
func (s *FolderService) isDescendant(ctx context.Context, nodeID, ancestorID int64) (bool, error) {
	visited := make(map[int64]struct{})
	current := nodeID

	for depth := 0; depth < maxTreeDepth; depth++ {
		if current == ancestorID {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			return false, fmt.Errorf("%w: cycle at folder %d", domain.ErrTreeCorrupted, current)
		}
		visited[current] = struct{}{}

		parent, err := s.folders.ParentID(ctx, current)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// The chain ran off the end of the table; treat the
				// missing link as a root.
				return false, nil
			}
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		current = *parent
	}

	return false, fmt.Errorf("%w: parent chain exceeds depth %d", domain.ErrTreeCorrupted, maxTreeDepth)
}

func (s *FolderService) ListChildren(ctx context.Context, ownerID string, parentID *int64, includeTrashed bool) ([]domain.Folder, error) {
	return s.folders.ListChildren(ctx, ownerID, parentID, includeTrashed)
}

// PathTo produces the ancestor chain from the root down to the folder
// itself. A well-formed tree cannot cycle on this path, but the walk is
// bounded anyway.
func (s *FolderService) PathTo(ctx context.Context, ownerID string, id int64) ([]domain.Folder, error) {
	chain := []domain.Folder{}
	current := id

	for depth := 0; depth < maxTreeDepth; depth++ {
		folder, err := s.folders.GetOwned(ctx, ownerID, current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *folder)

		if folder.ParentID == nil {
			// Reverse into root-first order.
			for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
				chain[i], chain[j] = chain[j], chain[i]
			}
			return chain, nil
		}
		current = *folder.ParentID
	}

	return nil, fmt.Errorf("%w: ancestor chain exceeds depth %d", domain.ErrTreeCorrupted, maxTreeDepth)
}

// HardDelete removes a folder immediately, bypassing the trash. Unlike the
// recursive permanent delete it refuses folders with any contents, trashed
// or not.
func (s *FolderService) HardDelete(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.folders.GetOwned(ctx, ownerID, id); err != nil {
		return err
	}

	childFolders, childFiles, err := s.folders.CountContents(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if childFolders > 0 || childFiles > 0 {
		return domain.ErrFolderNotEmpty
	}

	return s.folders.Delete(ctx, ownerID, id)
}

// ShallowCopy creates a new empty folder named after the source with a copy
// marker, in the target parent. targetSet distinguishes "not provided"
// (copy lands next to the source) from an explicit nil (copy lands at root).
func (s *FolderService) ShallowCopy(ctx context.Context, ownerID string, id int64, targetSet bool, targetParentID *int64) (*domain.Folder, error) {
	source, err := s.folders.GetOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	parentID := source.ParentID
	if targetSet {
		parentID = targetParentID
	}

	return s.Create(ctx, ownerID, source.Name+copySuffix, parentID)
}
