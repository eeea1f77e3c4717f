// Package service implements the business operations behind the HTTP API:
// file and folder management, user registration and service health.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/filesmanager/internal/access"
	"github.com/patric-chuzhbe/filesmanager/internal/blobstore"
	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/thumbnailer"
)

type fileKeeper interface {
	InsertFile(ctx context.Context, file *models.File) (int64, error)
	FindFileByID(ctx context.Context, fileID int64) (*models.File, bool, error)
	FindUserFile(ctx context.Context, fileID, userID int64) (*models.File, bool, error)
	ListUserFiles(ctx context.Context, userID, parentID int64, offset, limit int) ([]models.File, error)
	SetFilePublic(ctx context.Context, fileID, userID int64, isPublic bool) (bool, error)
}

type thumbnailQueue interface {
	Enqueue(ctx context.Context, job models.ThumbnailJob) error
}

// FileService manages file entities and their content.
type FileService struct {
	db         fileKeeper
	blobs      blobstore.BlobStore
	thumbnails thumbnailQueue
}

func NewFileService(db fileKeeper, blobs blobstore.BlobStore, thumbnails thumbnailQueue) *FileService {
	return &FileService{
		db:         db,
		blobs:      blobs,
		thumbnails: thumbnails,
	}
}

// Create validates the request, stores the content and registers the entity.
// Images get their derivatives built in the background.
func (s *FileService) Create(ctx context.Context, userID int64, request models.CreateFileRequest) (*models.File, error) {
	if request.Name == "" {
		return nil, models.MissingField("name")
	}
	if !funk.ContainsString(models.FileTypes, string(request.Type)) {
		return nil, models.MissingField("type")
	}

	file := &models.File{
		UserID:   userID,
		Name:     request.Name,
		Type:     request.Type,
		IsPublic: request.IsPublic,
		ParentID: int64(request.ParentID),
	}

	var content []byte
	if !file.IsFolder() {
		if request.Data == "" {
			return nil, models.MissingField("data")
		}
		decoded, err := base64.StdEncoding.DecodeString(request.Data)
		if err != nil {
			return nil, models.MissingField("data")
		}
		content = decoded
	}

	if file.ParentID != models.RootParentID {
		parent, found, err := s.db.FindFileByID(ctx, file.ParentID)
		if err != nil {
			return nil, fmt.Errorf("in internal/service/files.go/Create(): error while `s.db.FindFileByID()` calling: %w", err)
		}
		if !found {
			return nil, models.InvalidParent("Parent not found")
		}
		if !parent.IsFolder() {
			return nil, models.InvalidParent("Parent is not a folder")
		}
	}

	if !file.IsFolder() {
		file.LocalPath = s.blobs.NewPath()
		if err := s.blobs.Put(ctx, file.LocalPath, content); err != nil {
			return nil, fmt.Errorf("in internal/service/files.go/Create(): error while `s.blobs.Put()` calling: %w", err)
		}
	}

	fileID, err := s.db.InsertFile(ctx, file)
	if err != nil {
		if file.LocalPath != "" {
			if delErr := s.blobs.Delete(context.WithoutCancel(ctx), file.LocalPath); delErr != nil {
				logger.Log.Errorw("failed to remove orphan blob", "path", file.LocalPath, "error", delErr)
			}
		}
		return nil, fmt.Errorf("in internal/service/files.go/Create(): error while `s.db.InsertFile()` calling: %w", err)
	}
	file.ID = fileID

	if file.Type == models.FileTypeImage {
		s.enqueueThumbnails(ctx, file)
	}

	return file, nil
}

func (s *FileService) enqueueThumbnails(ctx context.Context, file *models.File) {
	job := models.ThumbnailJob{FileID: file.ID, UserID: file.UserID}
	if err := s.thumbnails.Enqueue(ctx, job); err != nil {
		logger.Log.Errorw("thumbnail job was not enqueued", "fileId", job.FileID, "userId", job.UserID, "error", err)
		return
	}

	logger.Log.Infow("thumbnail job", "fileId", job.FileID, "userId", job.UserID, "state", thumbnailer.StateEnqueued)
}

// Get returns an entity owned by userID. Public entities of other users are not found.
func (s *FileService) Get(ctx context.Context, userID, fileID int64) (*models.File, error) {
	file, found, err := s.db.FindUserFile(ctx, fileID, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/files.go/Get(): error while `s.db.FindUserFile()` calling: %w", err)
	}
	if !found {
		return nil, models.ErrNotFound
	}

	return file, nil
}

// List returns one zero-indexed page of the owner's entities under parentID.
func (s *FileService) List(ctx context.Context, userID, parentID int64, page int) ([]models.FileSummary, error) {
	if page < 0 {
		page = 0
	}

	files, err := s.db.ListUserFiles(ctx, userID, parentID, page*models.FilesPerPage, models.FilesPerPage)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/files.go/List(): error while `s.db.ListUserFiles()` calling: %w", err)
	}

	return funk.Map(files, func(file models.File) models.FileSummary {
		return file.Summary()
	}).([]models.FileSummary), nil
}

// SetVisibility publishes or unpublishes an entity of userID.
func (s *FileService) SetVisibility(ctx context.Context, userID, fileID int64, isPublic bool) (*models.VisibilityResponse, error) {
	file, found, err := s.db.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/files.go/SetVisibility(): error while `s.db.FindFileByID()` calling: %w", err)
	}
	if !found || !access.CanManage(userID, file) {
		return nil, models.ErrNotFound
	}

	updated, err := s.db.SetFilePublic(ctx, fileID, userID, isPublic)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/files.go/SetVisibility(): error while `s.db.SetFilePublic()` calling: %w", err)
	}
	if !updated {
		return nil, models.ErrNotFound
	}

	return &models.VisibilityResponse{
		ID:       strconv.FormatInt(fileID, 10),
		IsPublic: isPublic,
	}, nil
}

func parseSize(size string) (int, bool) {
	width, err := strconv.Atoi(size)
	if err != nil {
		return 0, false
	}

	return width, funk.ContainsInt(models.ThumbnailWidths, width)
}

// ReadContent returns the bytes of an entity, or of one of its derivatives
// when size is set. callerUserID is models.Anonymous for requests without a session.
func (s *FileService) ReadContent(ctx context.Context, callerUserID, fileID int64, size string) (*models.FileContent, error) {
	file, found, err := s.db.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/files.go/ReadContent(): error while `s.db.FindFileByID()` calling: %w", err)
	}
	if !found || !access.CanRead(callerUserID, file) {
		return nil, models.ErrNotFound
	}
	if file.IsFolder() {
		return nil, models.ErrInvalidOperation
	}

	path := file.LocalPath
	if size != "" {
		width, ok := parseSize(size)
		if !ok {
			return nil, models.ErrNotFound
		}
		path = file.DerivativePath(width)
	}

	data, err := s.blobs.Get(ctx, path)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("in internal/service/files.go/ReadContent(): error while `s.blobs.Get()` calling: %w", err)
	}

	return &models.FileContent{
		Name:        file.Name,
		ContentType: contentType(file.Name, data),
		Data:        data,
	}, nil
}

func contentType(name string, data []byte) string {
	if byExtension := mime.TypeByExtension(filepath.Ext(name)); byExtension != "" {
		return byExtension
	}

	return mimetype.Detect(data).String()
}
