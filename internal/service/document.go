package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docsearch/internal/index"
	"docsearch/internal/model"
	"docsearch/internal/storage"
)

const (
	snippetRunes       = 200
	noPreview          = "No preview available"
	contentTypePDF     = "application/pdf"
	defaultSearchLimit = 10
)

// FileContent is an open stored file ready to stream to a client.
// The caller must close Body.
type FileContent struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// SearchOptions bounds the number of hits a query may return.
type SearchOptions struct {
	DefaultLimit int
	MaxLimit     int
}

// DocumentService answers queries over the stored and indexed corpus.
type DocumentService interface {
	// Search runs query against the index. limit <= 0 selects the default,
	// values above the maximum are clamped.
	Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error)

	// List returns every filename known to either the store or the index.
	List(ctx context.Context) ([]string, error)

	// View opens a stored file for inline display.
	View(ctx context.Context, filename string) (*FileContent, error)

	// Download opens a stored file for download with its stored content type.
	Download(ctx context.Context, filename string) (*FileContent, error)

	// Delete removes the stored file, then every index record for it.
	Delete(ctx context.Context, filename string) (removed int, err error)

	// CheckConsistency compares store keys with indexed filenames.
	CheckConsistency(ctx context.Context) (*model.ConsistencyReport, error)
}

type documentService struct {
	store   storage.Storage
	idx     index.Index
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	opt     SearchOptions
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, idx index.Index, metrics *Metrics, logger *slog.Logger, opt SearchOptions) DocumentService {
	if opt.DefaultLimit <= 0 {
		opt.DefaultLimit = defaultSearchLimit
	}
	if opt.MaxLimit < opt.DefaultLimit {
		opt.MaxLimit = opt.DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		store:   store,
		idx:     idx,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "documents")),
		tracer:  otel.Tracer("docsearch/internal/service"),
		opt:     opt,
	}
}

func (s *documentService) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	switch {
	case limit <= 0:
		limit = s.opt.DefaultLimit
	case limit > s.opt.MaxLimit:
		limit = s.opt.MaxLimit
	}

	ctx, span := s.tracer.Start(ctx, "documents.search", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	hits, err := s.idx.Search(ctx, query, limit)
	if err != nil {
		s.metrics.indexFailed(opSearch)
		s.logger.Error("search failed", slog.String("error", err.Error()))
		return nil, indexUnavailable(err)
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))

	results := make([]model.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, model.SearchResult{
			Filename:     h.Document.Filename,
			Snippet:      snippet(h),
			Author:       orUnknown(h.Document.Author),
			CreationDate: orUnknown(h.Document.CreationDate),
		})
	}
	return results, nil
}

// snippet picks the first highlight, else the head of the content.
func snippet(h index.Hit) string {
	for _, hl := range h.Highlights {
		if hl != "" {
			return hl
		}
	}
	if h.Document.Content == "" {
		return noPreview
	}
	runes := []rune(h.Document.Content)
	if len(runes) > snippetRunes {
		runes = runes[:snippetRunes]
	}
	return string(runes)
}

func (s *documentService) List(ctx context.Context) ([]string, error) {
	stored, indexed, err := s.listBoth(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stored)+len(indexed))
	names := make([]string, 0, len(stored)+len(indexed))
	for _, group := range [][]string{stored, indexed} {
		for _, name := range group {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *documentService) listBoth(ctx context.Context) (stored, indexed []string, err error) {
	stored, err = s.store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list stored files: %w", err)
	}
	indexed, err = s.idx.ListFilenames(ctx)
	if err != nil {
		s.metrics.indexFailed(opList)
		s.logger.Error("list indexed filenames failed", slog.String("error", err.Error()))
		return nil, nil, indexUnavailable(err)
	}
	return stored, indexed, nil
}

func (s *documentService) View(ctx context.Context, filename string) (*FileContent, error) {
	fc, err := s.open(ctx, filename)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		fc.ContentType = contentTypePDF
	} else {
		fc.ContentType = defaultContentType
	}
	return fc, nil
}

func (s *documentService) Download(ctx context.Context, filename string) (*FileContent, error) {
	fc, err := s.open(ctx, filename)
	if err != nil {
		return nil, err
	}
	if fc.ContentType == "" {
		fc.ContentType = defaultContentType
	}
	return fc, nil
}

func (s *documentService) open(ctx context.Context, filename string) (*FileContent, error) {
	if err := storage.ValidateKey(filename); err != nil {
		return nil, ErrInvalidFilename
	}
	rc, info, err := s.store.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return &FileContent{
		Filename:    filename,
		ContentType: info.ContentType,
		Size:        info.Size,
		Body:        rc,
	}, nil
}

func (s *documentService) Delete(ctx context.Context, filename string) (int, error) {
	if err := storage.ValidateKey(filename); err != nil {
		return 0, ErrInvalidFilename
	}

	ctx, span := s.tracer.Start(ctx, "documents.delete", trace.WithAttributes(attribute.String("filename", filename)))
	defer span.End()

	if _, err := s.store.Stat(ctx, filename); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, ErrFileNotFound
		}
		return 0, fmt.Errorf("stat stored file: %w", err)
	}
	if err := s.store.Delete(ctx, filename); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, ErrFileNotFound
		}
		return 0, fmt.Errorf("delete stored file: %w", err)
	}

	removed, err := s.idx.DeleteByFilename(ctx, filename)
	if err != nil {
		s.metrics.indexFailed(opDelete)
		s.logger.Error("stored file deleted but index cleanup failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return 0, indexUnavailable(err)
	}

	s.logger.Info("document deleted", slog.String("filename", filename), slog.Int("records_removed", removed))
	return removed, nil
}

func (s *documentService) CheckConsistency(ctx context.Context) (*model.ConsistencyReport, error) {
	start := time.Now()
	stored, indexed, err := s.listBoth(ctx)
	if err != nil {
		return nil, err
	}

	inIndex := make(map[string]bool, len(indexed))
	for _, name := range indexed {
		inIndex[name] = true
	}
	inStore := make(map[string]bool, len(stored))
	for _, name := range stored {
		inStore[name] = true
	}

	report := &model.ConsistencyReport{StoredOnly: []string{}, IndexedOnly: []string{}}
	for name := range inStore {
		if inIndex[name] {
			report.Consistent++
		} else {
			report.StoredOnly = append(report.StoredOnly, name)
		}
	}
	for name := range inIndex {
		if !inStore[name] {
			report.IndexedOnly = append(report.IndexedOnly, name)
		}
	}
	sort.Strings(report.StoredOnly)
	sort.Strings(report.IndexedOnly)
	report.DurationMS = time.Since(start).Milliseconds()

	if len(report.StoredOnly) > 0 || len(report.IndexedOnly) > 0 {
		s.logger.Warn("store and index diverge",
			slog.Int("stored_only", len(report.StoredOnly)),
			slog.Int("indexed_only", len(report.IndexedOnly)),
		)
	}
	return report, nil
}
