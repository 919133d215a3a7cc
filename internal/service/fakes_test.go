package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"raindrive/internal/domain"
)

// memStore is an in-memory stand-in for the folder, file and trash
// repositories. It mirrors the SQL layer's semantics closely enough for
// the services under test: ownership scoping, cascade deletes and
// name-ordered listings.
type memStore struct {
	nextFolderID int64
	folders      map[int64]*domain.Folder
	files        map[uuid.UUID]*domain.File

	parentErr error
}

func newMemStore() *memStore {
	return &memStore{
		folders: make(map[int64]*domain.Folder),
		files:   make(map[uuid.UUID]*domain.File),
	}
}

func (m *memStore) addFolder(ownerID string, parentID *int64) *domain.Folder {
	m.nextFolderID++
	folder := &domain.Folder{
		ID:       m.nextFolderID,
		Name:     fmt.Sprintf("folder-%d", m.nextFolderID),
		OwnerID:  ownerID,
		ParentID: parentID,
	}
	m.folders[folder.ID] = folder
	return folder
}

func (m *memStore) addFile(ownerID string, folderID *int64, size int64) *domain.File {
	file := &domain.File{
		UUID:       uuid.New(),
		Name:       "doc.txt",
		MIMEType:   "text/plain",
		SizeBytes:  size,
		StorageKey: "drive/" + ownerID + "/" + uuid.NewString(),
		FolderID:   folderID,
		OwnerID:    ownerID,
	}
	m.files[file.UUID] = file
	return file
}

// addAlias inserts a second file row pointing at an existing row's key,
// the shape a copy leaves behind.
func (m *memStore) addAlias(source *domain.File, folderID *int64) *domain.File {
	alias := *source
	alias.UUID = uuid.New()
	alias.FolderID = folderID
	alias.DeletedAt = nil
	m.files[alias.UUID] = &alias
	return m.files[alias.UUID]
}

func (m *memStore) ownedFolder(ownerID string, id int64) (*domain.Folder, error) {
	folder, ok := m.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return folder, nil
}

func (m *memStore) ownedFile(ownerID string, id uuid.UUID) (*domain.File, error) {
	file, ok := m.files[id]
	if !ok || file.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return file, nil
}

// folderStore

func (m *memStore) Create(ctx context.Context, folder *domain.Folder) error {
	m.nextFolderID++
	folder.ID = m.nextFolderID
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt
	clone := *folder
	m.folders[folder.ID] = &clone
	return nil
}

func (m *memStore) GetOwned(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	folder, err := m.ownedFolder(ownerID, id)
	if err != nil {
		return nil, err
	}
	clone := *folder
	return &clone, nil
}

func (m *memStore) ParentID(ctx context.Context, id int64) (*int64, error) {
	if m.parentErr != nil {
		return nil, m.parentErr
	}
	folder, ok := m.folders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return folder.ParentID, nil
}

func (m *memStore) UpdateName(ctx context.Context, ownerID string, id int64, name string) error {
	folder, err := m.ownedFolder(ownerID, id)
	if err != nil {
		return err
	}
	folder.Name = name
	folder.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) UpdateParent(ctx context.Context, ownerID string, id int64, parentID *int64) error {
	folder, err := m.ownedFolder(ownerID, id)
	if err != nil {
		return err
	}
	folder.ParentID = parentID
	folder.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) ListChildren(ctx context.Context, ownerID string, parentID *int64, includeTrashed bool) ([]domain.Folder, error) {
	out := []domain.Folder{}
	for _, folder := range m.folders {
		if folder.OwnerID != ownerID {
			continue
		}
		if !sameParent(folder.ParentID, parentID) {
			continue
		}
		if !includeTrashed && folder.DeletedAt != nil {
			continue
		}
		out = append(out, *folder)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *memStore) CountContents(ctx context.Context, ownerID string, id int64) (int64, int64, error) {
	var folders, files int64
	for _, folder := range m.folders {
		if folder.OwnerID == ownerID && folder.ParentID != nil && *folder.ParentID == id {
			folders++
		}
	}
	for _, file := range m.files {
		if file.OwnerID == ownerID && file.FolderID != nil && *file.FolderID == id {
			files++
		}
	}
	return folders, files, nil
}

func (m *memStore) Delete(ctx context.Context, ownerID string, id int64) error {
	if _, err := m.ownedFolder(ownerID, id); err != nil {
		return err
	}
	m.cascadeDelete(id)
	return nil
}

// cascadeDelete mimics the ON DELETE CASCADE constraints.
func (m *memStore) cascadeDelete(id int64) {
	delete(m.folders, id)
	for childID, folder := range m.folders {
		if folder.ParentID != nil && *folder.ParentID == id {
			m.cascadeDelete(childID)
		}
	}
	for fileID, file := range m.files {
		if file.FolderID != nil && *file.FolderID == id {
			delete(m.files, fileID)
		}
	}
}

// subtreeWalker

func (m *memStore) SubtreeFiles(ctx context.Context, ownerID string, rootID int64) ([]domain.File, error) {
	if _, err := m.ownedFolder(ownerID, rootID); err != nil {
		return nil, err
	}

	subtree := map[int64]bool{rootID: true}
	for changed := true; changed; {
		changed = false
		for id, folder := range m.folders {
			if subtree[id] || folder.ParentID == nil {
				continue
			}
			if subtree[*folder.ParentID] {
				subtree[id] = true
				changed = true
			}
		}
	}

	out := []domain.File{}
	for _, file := range m.files {
		if file.FolderID != nil && subtree[*file.FolderID] {
			out = append(out, *file)
		}
	}
	return out, nil
}

// fileStore

func (m *memStore) GetOwnedFile(ctx context.Context, ownerID string, id uuid.UUID) (*domain.File, error) {
	file, err := m.ownedFile(ownerID, id)
	if err != nil {
		return nil, err
	}
	clone := *file
	return &clone, nil
}

func (m *memStore) UpdateFileName(ctx context.Context, ownerID string, id uuid.UUID, name string) error {
	file, err := m.ownedFile(ownerID, id)
	if err != nil {
		return err
	}
	file.Name = name
	file.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) UpdateFolder(ctx context.Context, ownerID string, id uuid.UUID, folderID *int64) error {
	file, err := m.ownedFile(ownerID, id)
	if err != nil {
		return err
	}
	file.FolderID = folderID
	file.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) ListRecent(ctx context.Context, ownerID string, limit, offset int) ([]domain.File, error) {
	out := []domain.File{}
	for _, file := range m.files {
		if file.OwnerID == ownerID && file.DeletedAt == nil {
			out = append(out, *file)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if offset >= len(out) {
		return []domain.File{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListByFolder(ctx context.Context, ownerID string, folderID *int64, includeTrashed bool) ([]domain.File, error) {
	out := []domain.File{}
	for _, file := range m.files {
		if file.OwnerID != ownerID {
			continue
		}
		if !sameParent(file.FolderID, folderID) {
			continue
		}
		if !includeTrashed && file.DeletedAt != nil {
			continue
		}
		out = append(out, *file)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *memStore) CountOtherRefs(ctx context.Context, key string, excluding []uuid.UUID) (int64, error) {
	skip := make(map[uuid.UUID]bool, len(excluding))
	for _, id := range excluding {
		skip[id] = true
	}

	var count int64
	for id, file := range m.files {
		if file.StorageKey == key && !skip[id] {
			count++
		}
	}
	return count, nil
}

// usageSource

func (m *memStore) Usage(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	for _, file := range m.files {
		if file.OwnerID == ownerID && file.DeletedAt == nil {
			total += file.SizeBytes
		}
	}
	return total, nil
}

// trashStore

func (m *memStore) SoftDeleteFile(ctx context.Context, ownerID string, id uuid.UUID, at time.Time) error {
	file, err := m.ownedFile(ownerID, id)
	if err != nil {
		return err
	}
	file.DeletedAt = &at
	return nil
}

func (m *memStore) SoftDeleteFolder(ctx context.Context, ownerID string, id int64, at time.Time) error {
	folder, err := m.ownedFolder(ownerID, id)
	if err != nil {
		return err
	}
	folder.DeletedAt = &at
	return nil
}

func (m *memStore) RestoreFile(ctx context.Context, ownerID string, id uuid.UUID) error {
	file, err := m.ownedFile(ownerID, id)
	if err != nil {
		return err
	}
	file.DeletedAt = nil
	return nil
}

func (m *memStore) RestoreFolder(ctx context.Context, ownerID string, id int64) error {
	folder, err := m.ownedFolder(ownerID, id)
	if err != nil {
		return err
	}
	folder.DeletedAt = nil
	return nil
}

func (m *memStore) ListTrash(ctx context.Context, ownerID string) ([]domain.Folder, []domain.File, error) {
	folders := []domain.Folder{}
	for _, folder := range m.folders {
		if folder.OwnerID == ownerID && folder.DeletedAt != nil {
			folders = append(folders, *folder)
		}
	}
	files := []domain.File{}
	for _, file := range m.files {
		if file.OwnerID == ownerID && file.DeletedAt != nil {
			files = append(files, *file)
		}
	}
	return folders, files, nil
}

func (m *memStore) ExpiredFiles(ctx context.Context, cutoff time.Time) ([]domain.File, error) {
	out := []domain.File{}
	for _, file := range m.files {
		if file.DeletedAt != nil && file.DeletedAt.Before(cutoff) {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (m *memStore) ExpiredFolders(ctx context.Context, cutoff time.Time) ([]domain.Folder, error) {
	out := []domain.Folder{}
	for _, folder := range m.folders {
		if folder.DeletedAt != nil && folder.DeletedAt.Before(cutoff) {
			out = append(out, *folder)
		}
	}
	return out, nil
}

func (m *memStore) DeleteFileRow(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	if _, err := m.ownedFile(ownerID, id); err != nil {
		return false, nil
	}
	delete(m.files, id)
	return true, nil
}

func (m *memStore) DeleteFolderRow(ctx context.Context, ownerID string, id int64) (bool, error) {
	if _, err := m.ownedFolder(ownerID, id); err != nil {
		return false, nil
	}
	m.cascadeDelete(id)
	return true, nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// fileMemStore adapts memStore to the file repository interface, whose
// method names collide with the folder repository's.
type fileMemStore struct {
	*memStore
}

func (f fileMemStore) Create(ctx context.Context, file *domain.File) error {
	file.CreatedAt = time.Now()
	file.UpdatedAt = file.CreatedAt
	clone := *file
	f.files[file.UUID] = &clone
	return nil
}

func (f fileMemStore) GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (*domain.File, error) {
	return f.GetOwnedFile(ctx, ownerID, id)
}

func (f fileMemStore) UpdateName(ctx context.Context, ownerID string, id uuid.UUID, name string) error {
	return f.UpdateFileName(ctx, ownerID, id, name)
}

// fakeBlobs implements the object store interface and records every call.
type fakeBlobs struct {
	objects   map[string][]byte
	released  []string
	uploadErr error
	deleteErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) UploadBytes(key string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) DeleteObject(key string) error {
	f.released = append(f.released, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobs) ObjectURL(key string) string {
	return "https://blobs.test/" + key
}

func (f *fakeBlobs) releaseCount(key string) int {
	n := 0
	for _, released := range f.released {
		if released == key {
			n++
		}
	}
	return n
}

// fakeUsers resolves principals by email.
type fakeUsers struct {
	users map[string]*domain.User
}

func newFakeUsers(emails ...string) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*domain.User)}
	for i, email := range emails {
		f.users[email] = &domain.User{
			ID:    fmt.Sprintf("user-%d", i+1),
			Email: email,
		}
	}
	return f
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}
