// Package storage persists the raw bytes of uploaded files under their filename.
// Backends publish objects atomically: a partially written upload is never
// visible to Get, Stat or List.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// ReservedKey names the local backend's bookkeeping directory. It is never a valid key.
const ReservedKey = ".docsearch"

var (
	// ErrObjectNotFound is returned when no object exists under the requested key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are not a single path element.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
// Path is the backend-specific location recorded in the index.
type ObjectInfo struct {
	Key          string
	Path         string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the file store shared by ingestion and retrieval.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put stores the reader's content under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without opening the content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// List returns the keys of every published object.
	List(ctx context.Context) ([]string, error)
}

// ValidateKey accepts only plain file names: no separators, no dot components
// and not ReservedKey.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || key == ReservedKey {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, 0) {
		return ErrInvalidKey
	}
	if filepath.Base(key) != key {
		return ErrInvalidKey
	}
	return nil
}
