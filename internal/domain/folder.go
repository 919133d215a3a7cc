package domain

import "time"

// Folder is a named container. ParentID nil means the folder sits at the
// owner's root; the parent chain must always terminate at a root without
// revisiting a node (the tree is a forest, never a graph with cycles).
type Folder struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Trashed reports whether the folder is soft-deleted. A nil DeletedAt is
// the active state; anything else is trashed since that timestamp.
func (f *Folder) Trashed() bool {
	return f.DeletedAt != nil
}

type FolderContent struct {
	Folder  Folder   `json:"folder"`
	Folders []Folder `json:"subfolders"`
	Files   []File   `json:"files"`
}
