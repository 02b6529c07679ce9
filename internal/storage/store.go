package storage

import (
	"errors"
	"fmt"
)

const (
	ReportDir = "reports"
)

var (
	// TODO : leaving this for now to be able to adjust for the tests
	DefaultDir = "file-storage"
)

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Persistence, error)

var (
	NotFoundErr     = errors.New("not found")
	CouldNotLoadErr = errors.New("could not load")
)

// Key is the storage key for a general implementation
type Key struct {
	Hash   int64  `json:"hash"`
	Run    string `json:"run"`
	Method string `json:"method"`
}

func (k Key) Path() string {
	return fmt.Sprintf("%s_%v_%s", k.Method, k.Hash, k.Run)
}

type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}
