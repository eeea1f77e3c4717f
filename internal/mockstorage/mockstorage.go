// Package mockstorage provides a testify mock of storage.Storage for
// exercising the failure paths of the services and HTTP handlers.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/filesmanager/internal/db/storage"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

var _ storage.Storage = (*StorageMock)(nil)

// StorageMock implements storage.Storage on top of mock.Mock.
type StorageMock struct {
	mock.Mock

	// OnCountUsers, when set, replaces the generic mock handler of CountUsers.
	OnCountUsers func(ctx context.Context) (int64, error)

	// OnCountFiles, when set, replaces the generic mock handler of CountFiles.
	OnCountFiles func(ctx context.Context) (int64, error)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, email, passwordDigest string) (int64, error) {
	args := m.Called(ctx, email, passwordDigest)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) getUser(args mock.Arguments) (*user.User, bool, error) {
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetUserByCredentials(ctx context.Context, email, passwordDigest string) (*user.User, bool, error) {
	return m.getUser(m.Called(ctx, email, passwordDigest))
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID int64) (*user.User, bool, error) {
	return m.getUser(m.Called(ctx, userID))
}

func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	return m.getUser(m.Called(ctx, email))
}

func (m *StorageMock) InsertFile(ctx context.Context, file *models.File) (int64, error) {
	args := m.Called(ctx, file)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) getFile(args mock.Arguments) (*models.File, bool, error) {
	file, _ := args.Get(0).(*models.File)
	return file, args.Bool(1), args.Error(2)
}

func (m *StorageMock) FindFileByID(ctx context.Context, fileID int64) (*models.File, bool, error) {
	return m.getFile(m.Called(ctx, fileID))
}

func (m *StorageMock) FindUserFile(ctx context.Context, fileID, userID int64) (*models.File, bool, error) {
	return m.getFile(m.Called(ctx, fileID, userID))
}

func (m *StorageMock) ListUserFiles(ctx context.Context, userID, parentID int64, offset, limit int) ([]models.File, error) {
	args := m.Called(ctx, userID, parentID, offset, limit)
	files, _ := args.Get(0).([]models.File)
	return files, args.Error(1)
}

func (m *StorageMock) SetFilePublic(ctx context.Context, fileID, userID int64, isPublic bool) (bool, error) {
	args := m.Called(ctx, fileID, userID, isPublic)
	return args.Bool(0), args.Error(1)
}

func (m *StorageMock) CountUsers(ctx context.Context) (int64, error) {
	if m.OnCountUsers != nil {
		return m.OnCountUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) CountFiles(ctx context.Context) (int64, error) {
	if m.OnCountFiles != nil {
		return m.OnCountFiles(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
