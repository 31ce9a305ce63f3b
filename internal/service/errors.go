package service

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrIndexUnavailable = errors.New("search index unavailable")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrQueryRequired    = errors.New("query is required")
)

// indexUnavailable wraps an index failure so callers can match ErrIndexUnavailable.
func indexUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
}
