// Package jsondb keeps users and file entities in memory and persists them
// as a single JSON document on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Users      map[int64]*user.User
	Files      map[int64]*models.File
	NextUserID int64
	NextFileID int64
}

// NewCache returns an empty document with id counters starting at 1.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:      map[int64]*user.User{},
		Files:      map[int64]*models.File{},
		NextUserID: 1,
		NextFileID: 1,
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/writeToJSONFile(): error while `json.MarshalIndent()` calling: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/writeToJSONFile(): error while `os.OpenFile()` calling: %w", err)
	}
	defer file.Close()

	if _, err = file.Write(jsonData); err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/writeToJSONFile(): error while `file.Write()` calling: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads fileName, starting from an empty document when it does not
// exist yet. An empty fileName gives a purely in-memory store.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}
	if fileName == "" {
		return db, nil
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil && !os.IsNotExist(err) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
	}
	db.repair()

	return db, nil
}

// repair makes a document decoded from an older or hand-edited file usable.
func (db *JSONDB) repair() {
	if db.Cache.Users == nil {
		db.Cache.Users = map[int64]*user.User{}
	}
	if db.Cache.Files == nil {
		db.Cache.Files = map[int64]*models.File{}
	}
	for id := range db.Cache.Users {
		if id >= db.Cache.NextUserID {
			db.Cache.NextUserID = id + 1
		}
	}
	for id := range db.Cache.Files {
		if id >= db.Cache.NextFileID {
			db.Cache.NextFileID = id + 1
		}
	}
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the document to disk.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, email, passwordDigest string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.Cache.Users {
		if existing.Email == email {
			return 0, models.ErrAlreadyExists
		}
	}

	id := db.Cache.NextUserID
	db.Cache.NextUserID++
	db.Cache.Users[id] = &user.User{ID: id, Email: email, Password: passwordDigest}

	return id, nil
}

func (db *JSONDB) GetUserByCredentials(ctx context.Context, email, passwordDigest string) (*user.User, bool, error) {
	usr, found, err := db.GetUserByEmail(ctx, email)
	if err != nil || !found || usr.Password != passwordDigest {
		return nil, false, err
	}

	return usr, true, nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID int64) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, false, nil
	}
	result := *usr

	return &result, true, nil
}

func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Email == email {
			result := *usr
			return &result, true, nil
		}
	}

	return nil, false, nil
}

func (db *JSONDB) InsertFile(ctx context.Context, file *models.File) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *file
	stored.ID = db.Cache.NextFileID
	db.Cache.NextFileID++
	db.Cache.Files[stored.ID] = &stored

	return stored.ID, nil
}

func (db *JSONDB) FindFileByID(ctx context.Context, fileID int64) (*models.File, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	file, found := db.Cache.Files[fileID]
	if !found {
		return nil, false, nil
	}
	result := *file

	return &result, true, nil
}

func (db *JSONDB) FindUserFile(ctx context.Context, fileID, userID int64) (*models.File, bool, error) {
	file, found, err := db.FindFileByID(ctx, fileID)
	if err != nil || !found || file.UserID != userID {
		return nil, false, err
	}

	return file, true, nil
}

func (db *JSONDB) ListUserFiles(ctx context.Context, userID, parentID int64, offset, limit int) ([]models.File, error) {
	db.mu.RLock()
	all := make([]models.File, 0, len(db.Cache.Files))
	for _, file := range db.Cache.Files {
		all = append(all, *file)
	}
	db.mu.RUnlock()

	matching := funk.Filter(all, func(file models.File) bool {
		return file.UserID == userID && file.ParentID == parentID
	}).([]models.File)
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID < matching[j].ID })

	result := []models.File{}
	if offset < 0 || offset >= len(matching) {
		return result, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	result = append(result, matching[offset:end]...)

	return result, nil
}

func (db *JSONDB) SetFilePublic(ctx context.Context, fileID, userID int64, isPublic bool) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	file, found := db.Cache.Files[fileID]
	if !found || file.UserID != userID {
		return false, nil
	}
	file.IsPublic = isPublic

	return true, nil
}

func (db *JSONDB) CountUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) CountFiles(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Files)), nil
}
