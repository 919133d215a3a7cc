package domain

import (
	"time"

	"github.com/google/uuid"
)

// File is a leaf reference into the external object store. SizeBytes is
// immutable after creation: content is never edited in place, only replaced
// by a new file. Several File rows may alias the same StorageKey (copies),
// because the backing store is content-addressed and immutable.
type File struct {
	UUID       uuid.UUID  `json:"uuid" db:"uuid"`
	Name       string     `json:"name" db:"name"`
	MIMEType   string     `json:"mime_type" db:"mime_type"`
	SizeBytes  int64      `json:"size_bytes" db:"size_bytes"`
	StorageKey string     `json:"storage_key" db:"storage_key"`
	FolderID   *int64     `json:"folder_id,omitempty" db:"folder_id"`
	OwnerID    string     `json:"owner_id" db:"owner_id"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

func (f *File) Trashed() bool {
	return f.DeletedAt != nil
}
