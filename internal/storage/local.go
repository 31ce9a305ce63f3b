package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
)

// Bookkeeping lives under dir/ReservedKey: in-flight uploads in tmp/ and the
// declared content type of each object in meta/.
const (
	tmpDir  = "tmp"
	metaDir = "meta"
)

// localStorage keeps objects as plain files in a single directory.
// Writes go to a temp file on the same filesystem and are renamed into place.
type localStorage struct {
	dir string
}

// objectMeta is the sidecar written next to every object.
type objectMeta struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocal creates a directory-backed Storage, creating dir if needed.
func NewLocal(dir string) (Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	s := &localStorage{dir: dir}
	for _, d := range []string{dir, s.stateDir(tmpDir), s.stateDir(metaDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return s, nil
}

func (s *localStorage) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *localStorage) stateDir(name string) string {
	return filepath.Join(s.dir, ReservedKey, name)
}

// metaPath hashes the key so long filenames never exceed the name limit.
func (s *localStorage) metaPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.stateDir(metaDir), hex.EncodeToString(sum[:])+".json")
}

// Put writes r to a temp file, syncs it, records its metadata and atomically
// renames it onto key.
func (s *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return ObjectInfo{}, err
	}

	tmp, err := os.CreateTemp(s.stateDir(tmpDir), "upload-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmpName)
		}
	}()

	size, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		_ = tmp.Close()
		return ObjectInfo{}, fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return ObjectInfo{}, fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("close file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	meta := objectMeta{ContentType: opt.ContentType, Metadata: opt.Metadata}
	if meta.ContentType == "" {
		meta.ContentType = contentTypeFromName(key)
	}
	if err := s.writeMeta(key, meta); err != nil {
		return ObjectInfo{}, err
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return ObjectInfo{}, fmt.Errorf("publish file: %w", err)
	}
	published = true

	info, err := s.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Size = size
	return info, nil
}

// writeMeta publishes the sidecar with the same temp-then-rename sequence.
func (s *localStorage) writeMeta(key string, meta objectMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp, err := os.CreateTemp(s.stateDir(tmpDir), "meta-*")
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.metaPath(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish metadata: %w", err)
	}
	return nil
}

// readMeta falls back to the extension when the sidecar is missing or unreadable.
func (s *localStorage) readMeta(key string) objectMeta {
	var meta objectMeta
	if b, err := os.ReadFile(s.metaPath(key)); err == nil {
		_ = json.Unmarshal(b, &meta)
	}
	if meta.ContentType == "" {
		meta.ContentType = contentTypeFromName(key)
	}
	return meta
}

func (s *localStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, ObjectInfo{}, mapFSError(err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	return f, s.info(key, st), nil
}

func (s *localStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(s.path(key))
	if err != nil {
		return ObjectInfo{}, mapFSError(err)
	}
	if !st.Mode().IsRegular() {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return s.info(key, st), nil
}

// Delete removes the object, then its sidecar.
func (s *localStorage) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil {
		return mapFSError(err)
	}
	if err := os.Remove(s.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove metadata: %w", err)
	}
	return nil
}

// List returns regular files in the directory, sorted by name.
func (s *localStorage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *localStorage) info(key string, st fs.FileInfo) ObjectInfo {
	meta := s.readMeta(key)
	return ObjectInfo{
		Key:          key,
		Path:         s.path(key),
		Size:         st.Size(),
		ContentType:  meta.ContentType,
		LastModified: st.ModTime(),
		Metadata:     meta.Metadata,
	}
}

func contentTypeFromName(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func mapFSError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}

// contextReader stops a copy once ctx is done, so a dropped client does not
// keep writing a temp file.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
