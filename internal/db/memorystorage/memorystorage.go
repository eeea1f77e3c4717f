package memorystorage

import (
	"github.com/patric-chuzhbe/filesmanager/internal/db/jsondb"
)

// MemoryStorage is a JSONDB that is never written to disk.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	db, err := jsondb.New("")
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{JSONDB: db}, nil
}
