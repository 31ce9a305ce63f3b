// Package extractor turns stored files into plain text plus a small metadata record.
// Dispatch is driven by the declared content type, never by sniffing the bytes.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"docsearch/internal/model"
)

// Content types with built-in extractors.
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeDOC      = "application/msword"
	ContentTypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLS      = "application/vnd.ms-excel"
	ContentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeTextBase = "text/"
)

// Metadata holds the document properties recorded alongside the text.
// Empty fields mean the extractor had nothing to say.
type Metadata struct {
	Author       string
	CreationDate string
}

// Result is the output of a single extraction.
type Result struct {
	Text     string
	Metadata Metadata
}

// Extractor extracts text and metadata from a file on local disk.
type Extractor interface {
	// Extract reads the file at path and interprets it according to contentType.
	// Unknown content types yield an empty Result and no error.
	Extract(ctx context.Context, path, contentType string) (Result, error)
}

// Func is a format-specific extraction routine.
type Func func(ctx context.Context, path string) (Result, error)

// ExtractionError reports that a file could not be parsed into text.
type ExtractionError struct {
	Filename    string
	ContentType string
	Err         error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Filename, e.ContentType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is, or wraps, an *ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

type prefixFunc struct {
	prefix string
	fn     Func
}

// Registry maps content types to extraction routines. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	exact    map[string]Func
	prefixes []prefixFunc
}

var _ Extractor = (*Registry)(nil)

// NewRegistry returns a registry with the PDF, Word, spreadsheet and plain text extractors.
func NewRegistry() *Registry {
	r := &Registry{exact: make(map[string]Func)}
	r.Register(ContentTypePDF, ExtractPDF)
	r.Register(ContentTypeDOC, ExtractWord)
	r.Register(ContentTypeDOCX, ExtractDOCX)
	r.Register(ContentTypeXLS, ExtractLegacySpreadsheet)
	r.Register(ContentTypeXLSX, ExtractSpreadsheet)
	r.RegisterPrefix(ContentTypeTextBase, ExtractText)
	return r
}

// Register binds an exact content type to fn, replacing any previous binding.
func (r *Registry) Register(contentType string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[normalizeContentType(contentType)] = fn
}

// RegisterPrefix binds every content type starting with prefix to fn.
// Exact bindings win over prefixes; earlier prefixes win over later ones.
func (r *Registry) RegisterPrefix(prefix string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefixFunc{prefix: strings.ToLower(prefix), fn: fn})
}

// Supports reports whether contentType has an extractor.
func (r *Registry) Supports(contentType string) bool {
	return r.lookup(normalizeContentType(contentType)) != nil
}

// Extract implements Extractor. The returned text is trimmed; failures are *ExtractionError.
func (r *Registry) Extract(ctx context.Context, path, contentType string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ct := normalizeContentType(contentType)
	fn := r.lookup(ct)
	if fn == nil {
		return Result{}, nil
	}

	res, err := fn(ctx, path)
	if err != nil {
		if IsExtractionError(err) {
			return Result{}, err
		}
		return Result{}, &ExtractionError{Filename: filepath.Base(path), ContentType: ct, Err: err}
	}

	res.Text = strings.TrimSpace(res.Text)
	return res, nil
}

func (r *Registry) lookup(ct string) Func {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if fn, ok := r.exact[ct]; ok {
		return fn
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(ct, p.prefix) {
			return p.fn
		}
	}
	return nil
}

// normalizeContentType lowercases and strips media type parameters.
func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// unknownMetadata is what formats without document properties report.
func unknownMetadata() Metadata {
	return Metadata{Author: model.UnknownValue, CreationDate: model.UnknownValue}
}
