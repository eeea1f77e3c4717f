// Package storagetest holds the behavior every storage.Storage
// implementation must share, runnable from each implementation's tests.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/filesmanager/internal/db/storage"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
)

// Run exercises a fresh, empty store returned by newStorage.
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Run("users", func(t *testing.T) {
		testUsers(t, newStorage(t))
	})
	t.Run("files", func(t *testing.T) {
		testFiles(t, newStorage(t))
	})
	t.Run("listing", func(t *testing.T) {
		testListing(t, newStorage(t))
	})
	t.Run("concurrent inserts", func(t *testing.T) {
		testConcurrentInserts(t, newStorage(t))
	})
}

func testUsers(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	id, err := theStorage.CreateUser(ctx, "bob@example.com", "digest")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = theStorage.CreateUser(ctx, "bob@example.com", "other")
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	usr, found, err := theStorage.GetUserByCredentials(ctx, "bob@example.com", "digest")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, usr.ID)

	_, found, err = theStorage.GetUserByCredentials(ctx, "bob@example.com", "wrong")
	require.NoError(t, err)
	assert.False(t, found)

	usr, found, err = theStorage.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob@example.com", usr.Email)

	_, found, err = theStorage.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	count, err := theStorage.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.NoError(t, theStorage.Ping(ctx))
}

func testFiles(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	folderID, err := theStorage.InsertFile(ctx, &models.File{
		UserID: 7,
		Name:   "docs",
		Type:   models.FileTypeFolder,
	})
	require.NoError(t, err)
	assert.Positive(t, folderID)

	fileID, err := theStorage.InsertFile(ctx, &models.File{
		UserID:    7,
		Name:      "a.txt",
		Type:      models.FileTypeFile,
		ParentID:  folderID,
		LocalPath: "/tmp/blob",
	})
	require.NoError(t, err)
	assert.NotEqual(t, folderID, fileID)

	file, found, err := theStorage.FindFileByID(ctx, fileID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.File{
		ID:        fileID,
		UserID:    7,
		Name:      "a.txt",
		Type:      models.FileTypeFile,
		ParentID:  folderID,
		LocalPath: "/tmp/blob",
	}, *file)

	folder, found, err := theStorage.FindUserFile(ctx, folderID, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, folder.LocalPath)

	_, found, err = theStorage.FindUserFile(ctx, fileID, 8)
	require.NoError(t, err)
	assert.False(t, found, "another owner must not match")

	_, found, err = theStorage.FindFileByID(ctx, 424242)
	require.NoError(t, err)
	assert.False(t, found)

	updated, err := theStorage.SetFilePublic(ctx, fileID, 8, true)
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = theStorage.SetFilePublic(ctx, fileID, 7, true)
	require.NoError(t, err)
	assert.True(t, updated)

	file, _, err = theStorage.FindFileByID(ctx, fileID)
	require.NoError(t, err)
	assert.True(t, file.IsPublic)

	count, err := theStorage.CountFiles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func testListing(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	var inserted []int64
	for i := 0; i < 25; i++ {
		id, err := theStorage.InsertFile(ctx, &models.File{
			UserID: 1,
			Name:   "folder",
			Type:   models.FileTypeFolder,
		})
		require.NoError(t, err)
		inserted = append(inserted, id)
	}
	_, err := theStorage.InsertFile(ctx, &models.File{UserID: 2, Name: "foreign", Type: models.FileTypeFolder})
	require.NoError(t, err)
	_, err = theStorage.InsertFile(ctx, &models.File{UserID: 1, Name: "nested", Type: models.FileTypeFolder, ParentID: inserted[0]})
	require.NoError(t, err)

	firstPage, err := theStorage.ListUserFiles(ctx, 1, models.RootParentID, 0, models.FilesPerPage)
	require.NoError(t, err)
	secondPage, err := theStorage.ListUserFiles(ctx, 1, models.RootParentID, models.FilesPerPage, models.FilesPerPage)
	require.NoError(t, err)
	thirdPage, err := theStorage.ListUserFiles(ctx, 1, models.RootParentID, 2*models.FilesPerPage, models.FilesPerPage)
	require.NoError(t, err)

	require.Len(t, firstPage, 20)
	require.Len(t, secondPage, 5)
	assert.NotNil(t, thirdPage)
	assert.Empty(t, thirdPage)

	var listed []int64
	for _, file := range append(firstPage, secondPage...) {
		listed = append(listed, file.ID)
	}
	assert.Equal(t, inserted, listed)

	nested, err := theStorage.ListUserFiles(ctx, 1, inserted[0], 0, models.FilesPerPage)
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "nested", nested[0].Name)
}

func testConcurrentInserts(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	const workers = 8
	ids := make(chan int64, workers*5)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				id, err := theStorage.InsertFile(ctx, &models.File{UserID: 1, Name: "x", Type: models.FileTypeFolder})
				assert.NoError(t, err)
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*5)
}
