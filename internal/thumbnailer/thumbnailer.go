// Package thumbnailer builds the fixed-width derivatives of uploaded images
// and greets newly registered users. Both run as background jobs.
package thumbnailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
)

// State is the lifecycle stage of a job: enqueued, processing, then done or failed.
type State string

const (
	StateEnqueued   State = "enqueued"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var (
	ErrMissingFileID = errors.New("missing fileId")
	ErrMissingUserID = errors.New("missing userId")
)

type fileFinder interface {
	FindUserFile(ctx context.Context, fileID, userID int64) (*models.File, bool, error)
}

type blobReadWriter interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte) error
}

// Thumbnailer writes one derivative per configured width next to the original.
type Thumbnailer struct {
	db        fileFinder
	blobs     blobReadWriter
	widths    []int
	maxPixels int
}

func New(db fileFinder, blobs blobReadWriter) *Thumbnailer {
	return &Thumbnailer{
		db:        db,
		blobs:     blobs,
		widths:    models.ThumbnailWidths,
		maxPixels: maxSourcePixels,
	}
}

// Handle processes one job and logs its terminal state.
func (t *Thumbnailer) Handle(ctx context.Context, job models.ThumbnailJob) error {
	logger.Log.Infow("thumbnail job", "fileId", job.FileID, "userId", job.UserID, "state", StateProcessing)

	err := t.generate(ctx, job)
	if err != nil {
		logger.Log.Errorw("thumbnail job", "fileId", job.FileID, "userId", job.UserID, "state", StateFailed, "error", err)
		return err
	}

	logger.Log.Infow("thumbnail job", "fileId", job.FileID, "userId", job.UserID, "state", StateDone)

	return nil
}

func (t *Thumbnailer) generate(ctx context.Context, job models.ThumbnailJob) error {
	if job.FileID <= 0 {
		return ErrMissingFileID
	}
	if job.UserID <= 0 {
		return ErrMissingUserID
	}

	file, found, err := t.db.FindUserFile(ctx, job.FileID, job.UserID)
	if err != nil {
		return fmt.Errorf("in internal/thumbnailer/thumbnailer.go/generate(): error while `t.db.FindUserFile()` calling: %w", err)
	}
	if !found || file.LocalPath == "" {
		return fmt.Errorf("in internal/thumbnailer/thumbnailer.go/generate(): file %d: %w", job.FileID, models.ErrNotFound)
	}

	original, err := t.blobs.Get(ctx, file.LocalPath)
	if err != nil {
		return fmt.Errorf("in internal/thumbnailer/thumbnailer.go/generate(): error while `t.blobs.Get()` calling: %w", err)
	}

	img, format, err := decode(original, t.maxPixels)
	if err != nil {
		return err
	}
	for _, width := range t.widths {
		if err := checkDerivative(img.Bounds(), width); err != nil {
			return err
		}
	}

	for _, width := range t.widths {
		thumbnail, err := resize(img, format, width)
		if err != nil {
			return err
		}
		if err := t.blobs.Put(ctx, file.DerivativePath(width), thumbnail); err != nil {
			return fmt.Errorf("in internal/thumbnailer/thumbnailer.go/generate(): error while `t.blobs.Put()` calling: %w", err)
		}
	}

	return nil
}
