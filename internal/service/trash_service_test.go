package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raindrive/internal/domain"
)

func newTrashFixture() (*memStore, *fakeBlobs, *TrashService) {
	store := newMemStore()
	blobs := newFakeBlobs()
	svc := NewTrashService(store, store, fileMemStore{store}, blobs)
	return store, blobs, svc
}

func TestSoftDeleteAndRestoreRoundtrip(t *testing.T) {
	store, _, svc := newTrashFixture()

	file := store.addFile("user-1", nil, 10)

	require.NoError(t, svc.SoftDeleteFile(context.Background(), "user-1", file.UUID))
	assert.NotNil(t, store.files[file.UUID].DeletedAt)

	require.NoError(t, svc.RestoreFile(context.Background(), "user-1", file.UUID))
	assert.Nil(t, store.files[file.UUID].DeletedAt)
}

func TestRestoreIsIdempotent(t *testing.T) {
	store, _, svc := newTrashFixture()

	file := store.addFile("user-1", nil, 10)

	require.NoError(t, svc.RestoreFile(context.Background(), "user-1", file.UUID))
	require.NoError(t, svc.RestoreFile(context.Background(), "user-1", file.UUID))
	assert.Nil(t, store.files[file.UUID].DeletedAt)
}

func TestSoftDeleteForeignItemIsNotFound(t *testing.T) {
	store, _, svc := newTrashFixture()

	file := store.addFile("user-2", nil, 10)

	err := svc.SoftDeleteFile(context.Background(), "user-1", file.UUID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPermanentlyDeleteFileReleasesBlob(t *testing.T) {
	store, blobs, svc := newTrashFixture()

	file := store.addFile("user-1", nil, 10)
	key := file.StorageKey

	require.NoError(t, svc.PermanentlyDeleteFile(context.Background(), "user-1", file.UUID))
	assert.NotContains(t, store.files, file.UUID)
	assert.Equal(t, 1, blobs.releaseCount(key))
}

func TestPermanentlyDeleteFileSurvivesFailedRelease(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	blobs.deleteErr = errors.New("store unavailable")

	file := store.addFile("user-1", nil, 10)

	require.NoError(t, svc.PermanentlyDeleteFile(context.Background(), "user-1", file.UUID))
	assert.NotContains(t, store.files, file.UUID, "row removal must not be blocked by a failed release")
}

func TestPermanentlyDeleteFileKeepsBlobWhileCopyLives(t *testing.T) {
	store, blobs, svc := newTrashFixture()

	original := store.addFile("user-1", nil, 10)
	key := original.StorageKey
	blobs.objects[key] = []byte("payload")
	dupe := store.addAlias(original, nil)

	require.NoError(t, svc.PermanentlyDeleteFile(context.Background(), "user-1", original.UUID))

	assert.NotContains(t, store.files, original.UUID)
	assert.Contains(t, store.files, dupe.UUID)
	assert.Equal(t, 0, blobs.releaseCount(key), "blob must survive while a copy references its key")
	assert.Contains(t, blobs.objects, key)
}

func TestPermanentlyDeleteFileReleasesLastReference(t *testing.T) {
	store, blobs, svc := newTrashFixture()

	original := store.addFile("user-1", nil, 10)
	key := original.StorageKey
	dupe := store.addAlias(original, nil)

	require.NoError(t, svc.PermanentlyDeleteFile(context.Background(), "user-1", original.UUID))
	assert.Equal(t, 0, blobs.releaseCount(key))

	require.NoError(t, svc.PermanentlyDeleteFile(context.Background(), "user-1", dupe.UUID))
	assert.Equal(t, 1, blobs.releaseCount(key), "last reference gone, blob must be released once")
}

func TestTrashedCopyStillHoldsItsBlob(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	at := time.Now()

	original := store.addFile("user-1", nil, 10)
	key := original.StorageKey
	dupe := store.addAlias(original, nil)
	dupe.DeletedAt = &at

	// The trashed copy can still be restored, so deleting the original
	// must not take the object with it.
	require.NoError(t, svc.PermanentlyDeleteFile(context.Background(), "user-1", original.UUID))
	assert.Equal(t, 0, blobs.releaseCount(key))
}

func TestPermanentlyDeleteFolderReleasesSubtreeBlobs(t *testing.T) {
	store, blobs, svc := newTrashFixture()

	root := store.addFolder("user-1", nil)
	child := store.addFolder("user-1", &root.ID)
	topFile := store.addFile("user-1", &root.ID, 10)
	deepFile := store.addFile("user-1", &child.ID, 20)

	require.NoError(t, svc.PermanentlyDeleteFolder(context.Background(), "user-1", root.ID))

	assert.Empty(t, store.folders)
	assert.Empty(t, store.files)
	assert.Equal(t, 1, blobs.releaseCount(topFile.StorageKey))
	assert.Equal(t, 1, blobs.releaseCount(deepFile.StorageKey))
}

func TestPermanentlyDeleteFolderKeepsBlobReferencedOutsideSubtree(t *testing.T) {
	store, blobs, svc := newTrashFixture()

	folder := store.addFolder("user-1", nil)
	inside := store.addFile("user-1", &folder.ID, 10)
	key := inside.StorageKey
	outside := store.addAlias(inside, nil)

	require.NoError(t, svc.PermanentlyDeleteFolder(context.Background(), "user-1", folder.ID))

	assert.Contains(t, store.files, outside.UUID)
	assert.Equal(t, 0, blobs.releaseCount(key), "a copy outside the subtree still references the key")
}

func TestPermanentlyDeleteFolderReleasesSharedSubtreeKeyOnce(t *testing.T) {
	store, blobs, svc := newTrashFixture()

	folder := store.addFolder("user-1", nil)
	child := store.addFolder("user-1", &folder.ID)
	one := store.addFile("user-1", &folder.ID, 10)
	key := one.StorageKey
	store.addAlias(one, &child.ID)

	require.NoError(t, svc.PermanentlyDeleteFolder(context.Background(), "user-1", folder.ID))

	assert.Empty(t, store.files)
	assert.Equal(t, 1, blobs.releaseCount(key), "both references were inside the doomed subtree")
}

func TestEmptyTrashRemovesOnlyTrashedItems(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	at := time.Now()

	kept := store.addFile("user-1", nil, 10)
	doomed := store.addFile("user-1", nil, 20)
	doomed.DeletedAt = &at
	doomedFolder := store.addFolder("user-1", nil)
	doomedFolder.DeletedAt = &at

	count, err := svc.EmptyTrash(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Contains(t, store.files, kept.UUID)
	assert.NotContains(t, store.files, doomed.UUID)
	assert.NotContains(t, store.folders, doomedFolder.ID)
	assert.Equal(t, 1, blobs.releaseCount(doomed.StorageKey))
}

func TestEmptyTrashCountsFolderCascadedAway(t *testing.T) {
	store, _, svc := newTrashFixture()
	at := time.Now()

	parent := store.addFolder("user-1", nil)
	parent.DeletedAt = &at
	nested := store.addFolder("user-1", &parent.ID)
	nested.DeletedAt = &at

	count, err := svc.EmptyTrash(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, store.folders)
}

func TestEmptyTrashKeepsBlobOfActiveCopy(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	at := time.Now()

	trashed := store.addFile("user-1", nil, 10)
	trashed.DeletedAt = &at
	key := trashed.StorageKey
	active := store.addAlias(trashed, nil)

	count, err := svc.EmptyTrash(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Contains(t, store.files, active.UUID)
	assert.Equal(t, 0, blobs.releaseCount(key))
}

func TestSweepRespectsCutoff(t *testing.T) {
	store, _, svc := newTrashFixture()

	expired := store.addFile("user-1", nil, 10)
	expiredAt := time.Now().Add(-31 * 24 * time.Hour)
	expired.DeletedAt = &expiredAt

	recent := store.addFile("user-1", nil, 10)
	recentAt := time.Now().Add(-29 * 24 * time.Hour)
	recent.DeletedAt = &recentAt

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	result, err := svc.Sweep(context.Background(), cutoff)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesDeleted)
	assert.NotContains(t, store.files, expired.UUID)
	assert.Contains(t, store.files, recent.UUID)
}

func TestSweepReleasesNestedExpiredFileOnce(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	expiredAt := time.Now().Add(-40 * 24 * time.Hour)

	folder := store.addFolder("user-1", nil)
	folder.DeletedAt = &expiredAt
	file := store.addFile("user-1", &folder.ID, 10)
	file.DeletedAt = &expiredAt
	key := file.StorageKey

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	result, err := svc.Sweep(context.Background(), cutoff)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesDeleted)
	assert.Equal(t, 1, result.FoldersDeleted)
	assert.Equal(t, 1, blobs.releaseCount(key), "a file expired inside an expired folder is released exactly once")
	assert.Empty(t, store.files)
	assert.Empty(t, store.folders)
}

func TestSweepKeepsBlobOfActiveCopy(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	expiredAt := time.Now().Add(-40 * 24 * time.Hour)

	expired := store.addFile("user-1", nil, 10)
	expired.DeletedAt = &expiredAt
	key := expired.StorageKey
	active := store.addAlias(expired, nil)

	result, err := svc.Sweep(context.Background(), time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesDeleted)
	assert.Contains(t, store.files, active.UUID)
	assert.Equal(t, 0, blobs.releaseCount(key))
}

func TestSweepReleasesSharedExpiredKeyOnce(t *testing.T) {
	store, blobs, svc := newTrashFixture()
	expiredAt := time.Now().Add(-40 * 24 * time.Hour)

	one := store.addFile("user-1", nil, 10)
	one.DeletedAt = &expiredAt
	key := one.StorageKey
	two := store.addAlias(one, nil)
	two.DeletedAt = &expiredAt

	result, err := svc.Sweep(context.Background(), time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)

	// Whichever row goes first sees the survivor and skips the release;
	// the last one out turns off the light.
	assert.Equal(t, 2, result.FilesDeleted)
	assert.Equal(t, 1, blobs.releaseCount(key))
	assert.Empty(t, store.files)
}

func TestSweepCrossesUsers(t *testing.T) {
	store, _, svc := newTrashFixture()
	expiredAt := time.Now().Add(-40 * 24 * time.Hour)

	one := store.addFile("user-1", nil, 10)
	one.DeletedAt = &expiredAt
	two := store.addFile("user-2", nil, 10)
	two.DeletedAt = &expiredAt

	result, err := svc.Sweep(context.Background(), time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesDeleted)
	assert.Empty(t, store.files)
}

func TestListTrashReturnsBothKinds(t *testing.T) {
	store, _, svc := newTrashFixture()
	at := time.Now()

	folder := store.addFolder("user-1", nil)
	folder.DeletedAt = &at
	file := store.addFile("user-1", nil, 10)
	file.DeletedAt = &at
	store.addFile("user-1", nil, 10) // active, must stay hidden

	content, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, content.Folders, 1)
	assert.Len(t, content.Files, 1)
}
