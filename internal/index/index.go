// Package index defines the full-text index the service writes documents to
// and queries. Backends live in subpackages.
package index

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"docsearch/internal/model"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("index is closed")

// documentNamespace scopes the name-based document IDs.
var documentNamespace = uuid.MustParse("6f1c2b7e-3d4a-5b6c-8d9e-0a1b2c3d4e5f")

// Index stores Documents and answers full-text queries over them.
// Implementations must be safe for concurrent use.
type Index interface {
	// IndexDocument writes doc if no record with doc.ID exists yet.
	// created is false when a record was already present; nothing is overwritten.
	IndexDocument(ctx context.Context, doc *model.Document) (created bool, err error)

	// FindByFilename returns every record whose filename equals filename exactly.
	FindByFilename(ctx context.Context, filename string) ([]model.Document, error)

	// Search runs a relevance-ranked match over filename and content.
	Search(ctx context.Context, query string, limit int) ([]Hit, error)

	// DeleteByFilename removes all records for filename. Zero removed is not an error.
	DeleteByFilename(ctx context.Context, filename string) (removed int, err error)

	// ListFilenames returns every indexed filename once, sorted.
	ListFilenames(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Hit is one search match. Highlights are content fragments with the
// matched terms marked; it may be empty.
type Hit struct {
	Document   model.Document
	Score      float64
	Highlights []string
}

// DocumentID derives the record ID for a filename. The same filename always
// maps to the same ID, which makes IndexDocument an insert-if-absent by filename.
func DocumentID(filename string) string {
	return uuid.NewSHA1(documentNamespace, []byte(filename)).String()
}
