// Package storage declares the repository contract shared by every
// document store implementation.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

// Storage persists users and file entities. Implementations must be safe
// for concurrent use.
type Storage interface {
	// CreateUser returns models.ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, email, passwordDigest string) (int64, error)

	GetUserByCredentials(ctx context.Context, email, passwordDigest string) (*user.User, bool, error)

	GetUserByID(ctx context.Context, userID int64) (*user.User, bool, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)

	// InsertFile assigns and returns a fresh id. The ID field of file is ignored.
	InsertFile(ctx context.Context, file *models.File) (int64, error)

	FindFileByID(ctx context.Context, fileID int64) (*models.File, bool, error)

	// FindUserFile matches on both the id and the owner.
	FindUserFile(ctx context.Context, fileID, userID int64) (*models.File, bool, error)

	// ListUserFiles returns the owner's entities under parentID in ascending id order.
	ListUserFiles(ctx context.Context, userID, parentID int64, offset, limit int) ([]models.File, error)

	// SetFilePublic reports false when no entity with that id and owner exists.
	SetFilePublic(ctx context.Context, fileID, userID int64, isPublic bool) (bool, error)

	CountUsers(ctx context.Context) (int64, error)

	CountFiles(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
