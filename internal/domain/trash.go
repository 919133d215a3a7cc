package domain

// ItemKind discriminates the two entity kinds the trash and the
// orchestrator operate on.
type ItemKind string

const (
	KindFile   ItemKind = "file"
	KindFolder ItemKind = "folder"
)

func (k ItemKind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// TrashContent is the per-owner trash listing, each slice ordered by
// soft-delete timestamp descending.
type TrashContent struct {
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// SweepResult reports what a retention sweep removed.
type SweepResult struct {
	FilesDeleted   int `json:"deleted_files"`
	FoldersDeleted int `json:"deleted_folders"`
}
