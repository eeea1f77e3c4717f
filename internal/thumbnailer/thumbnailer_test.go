package thumbnailer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/filesmanager/internal/blobstore"
	"github.com/patric-chuzhbe/filesmanager/internal/blobstore/localfs"
	"github.com/patric-chuzhbe/filesmanager/internal/db/memorystorage"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
)

func encodedImage(t *testing.T, width, height int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	default:
		require.NoError(t, png.Encode(&buf, img))
	}
	return buf.Bytes()
}

type fixture struct {
	db     *memorystorage.MemoryStorage
	blobs  *localfs.LocalFS
	thumbs *Thumbnailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)
	blobs := localfs.New(filepath.Join(t.TempDir(), "files"))

	return &fixture{db: db, blobs: blobs, thumbs: New(db, blobs)}
}

func (f *fixture) storeImage(t *testing.T, userID int64, data []byte) *models.File {
	t.Helper()
	ctx := context.Background()
	file := &models.File{UserID: userID, Name: "photo", Type: models.FileTypeImage, LocalPath: f.blobs.NewPath()}
	require.NoError(t, f.blobs.Put(ctx, file.LocalPath, data))
	id, err := f.db.InsertFile(ctx, file)
	require.NoError(t, err)
	file.ID = id
	return file
}

func TestGeneratesAllWidths(t *testing.T) {
	for _, format := range []string{"png", "jpeg"} {
		t.Run(format, func(t *testing.T) {
			f := newFixture(t)
			file := f.storeImage(t, 1, encodedImage(t, 1000, 400, format))

			require.NoError(t, f.thumbs.Handle(context.Background(), models.ThumbnailJob{FileID: file.ID, UserID: 1}))

			expected := map[int]int{500: 200, 250: 100, 100: 40}
			for width, height := range expected {
				data, err := f.blobs.Get(context.Background(), file.DerivativePath(width))
				require.NoError(t, err, "width %d", width)

				cfg, decodedFormat, err := image.DecodeConfig(bytes.NewReader(data))
				require.NoError(t, err)
				assert.Equal(t, format, decodedFormat)
				assert.Equal(t, width, cfg.Width)
				assert.Equal(t, height, cfg.Height)
			}
		})
	}
}

func TestVeryWideImageKeepsOnePixelHeight(t *testing.T) {
	f := newFixture(t)
	file := f.storeImage(t, 1, encodedImage(t, 2000, 1, "png"))

	require.NoError(t, f.thumbs.Handle(context.Background(), models.ThumbnailJob{FileID: file.ID, UserID: 1}))

	data, err := f.blobs.Get(context.Background(), file.DerivativePath(100))
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Height)
}

func TestRegenerationOverwrites(t *testing.T) {
	f := newFixture(t)
	file := f.storeImage(t, 1, encodedImage(t, 600, 600, "png"))
	job := models.ThumbnailJob{FileID: file.ID, UserID: 1}

	require.NoError(t, f.thumbs.Handle(context.Background(), job))
	require.NoError(t, f.thumbs.Handle(context.Background(), job))

	_, err := f.blobs.Get(context.Background(), file.DerivativePath(250))
	assert.NoError(t, err)
}

func TestJobFailures(t *testing.T) {
	f := newFixture(t)
	file := f.storeImage(t, 1, encodedImage(t, 300, 300, "png"))
	notAnImage := f.storeImage(t, 1, []byte("plain text"))

	type tTestCase struct {
		name    string
		job     models.ThumbnailJob
		wantErr error
	}
	testCases := []tTestCase{
		{name: "missing file id", job: models.ThumbnailJob{UserID: 1}, wantErr: ErrMissingFileID},
		{name: "missing user id", job: models.ThumbnailJob{FileID: file.ID}, wantErr: ErrMissingUserID},
		{name: "another owner", job: models.ThumbnailJob{FileID: file.ID, UserID: 2}, wantErr: models.ErrNotFound},
		{name: "unknown file", job: models.ThumbnailJob{FileID: 9999, UserID: 1}, wantErr: models.ErrNotFound},
		{name: "undecodable content", job: models.ThumbnailJob{FileID: notAnImage.ID, UserID: 1}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := f.thumbs.Handle(context.Background(), testCase.job)
			require.Error(t, err)
			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
			}
		})
	}

	_, err := f.blobs.Get(context.Background(), notAnImage.DerivativePath(100))
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound)
}

type failingBlobs struct {
	*localfs.LocalFS
	puts int
}

func (b *failingBlobs) Put(ctx context.Context, path string, data []byte) error {
	b.puts++
	return errors.New("disk full")
}

func TestFirstDerivativeFailureAbortsJob(t *testing.T) {
	f := newFixture(t)
	file := f.storeImage(t, 1, encodedImage(t, 800, 800, "png"))

	blobs := &failingBlobs{LocalFS: f.blobs}
	thumbs := New(f.db, blobs)

	err := thumbs.Handle(context.Background(), models.ThumbnailJob{FileID: file.ID, UserID: 1})
	require.Error(t, err)
	assert.Equal(t, 1, blobs.puts)
}

func TestScaledHeight(t *testing.T) {
	assert.Equal(t, 250, scaledHeight(image.Rect(0, 0, 1000, 1000), 250))
	assert.Equal(t, 67, scaledHeight(image.Rect(0, 0, 300, 200), 100))
	assert.Equal(t, 1, scaledHeight(image.Rect(0, 0, 5000, 1), 100))
	assert.Equal(t, 50_000_000, scaledHeight(image.Rect(0, 0, 1, 100_000), 500))
}

func TestCheckDerivative(t *testing.T) {
	assert.NoError(t, checkDerivative(image.Rect(0, 0, 1000, 500), 500))
	assert.NoError(t, checkDerivative(image.Rect(0, 0, 500, 10_000), 500))
	assert.ErrorIs(t, checkDerivative(image.Rect(0, 0, 500, 10_001), 500), ErrImageTooLarge)
	assert.ErrorIs(t, checkDerivative(image.Rect(0, 0, 1, 100_000), 500), ErrImageTooLarge)
}

func TestOversizedImagesFailTheJob(t *testing.T) {
	type tTestCase struct {
		name      string
		width     int
		height    int
		maxPixels int
	}
	testCases := []tTestCase{
		{name: "one pixel wide", width: 1, height: 100, maxPixels: maxSourcePixels},
		{name: "over the pixel budget", width: 20, height: 20, maxPixels: 100},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newFixture(t)
			f.thumbs.maxPixels = testCase.maxPixels
			file := f.storeImage(t, 1, encodedImage(t, testCase.width, testCase.height, "png"))

			err := f.thumbs.Handle(context.Background(), models.ThumbnailJob{FileID: file.ID, UserID: 1})
			assert.ErrorIs(t, err, ErrImageTooLarge)

			for _, width := range models.ThumbnailWidths {
				_, err := f.blobs.Get(context.Background(), file.DerivativePath(width))
				assert.ErrorIs(t, err, blobstore.ErrBlobNotFound, "width %d", width)
			}
		})
	}
}

func TestWelcomer(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)
	userID, err := db.CreateUser(context.Background(), "bob@dylan.com", "digest")
	require.NoError(t, err)

	welcomer := NewWelcomer(db)

	assert.NoError(t, welcomer.Handle(context.Background(), models.WelcomeJob{UserID: userID}))
	assert.ErrorIs(t, welcomer.Handle(context.Background(), models.WelcomeJob{}), ErrMissingUserID)
	assert.ErrorIs(t, welcomer.Handle(context.Background(), models.WelcomeJob{UserID: 999}), models.ErrNotFound)
}
