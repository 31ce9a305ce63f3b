// Package bleveindex is the embedded Bleve implementation of index.Index.
package bleveindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	regexpfilter "github.com/blevesearch/bleve/v2/analysis/char/regexp"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"docsearch/internal/index"
	"docsearch/internal/model"
)

const (
	fieldFilename     = "filename"
	fieldFilenameKey  = "filename_key"
	fieldPath         = "path"
	fieldSize         = "size"
	fieldContentType  = "content_type"
	fieldUploadDate   = "upload_date"
	fieldContent      = "content"
	fieldAuthor       = "author"
	fieldCreationDate = "creation_date"
	fieldChecksum     = "checksum"

	// filenameAnalyzer splits names like "q3_report-final.docx" into words.
	filenameAnalyzer   = "filename_words"
	filenameSeparators = "filename_separators"

	// pageSize bounds a single scan request in ListFilenames and DeleteByFilename.
	pageSize = 1000
)

// record is the shape written to Bleve. filename_key holds the untokenized
// filename for exact lookups.
type record struct {
	Filename     string  `json:"filename"`
	FilenameKey  string  `json:"filename_key"`
	Path         string  `json:"path"`
	Size         float64 `json:"size"`
	ContentType  string  `json:"content_type"`
	UploadDate   string  `json:"upload_date"`
	Content      string  `json:"content"`
	Author       string  `json:"author"`
	CreationDate string  `json:"creation_date"`
	Checksum     string  `json:"checksum"`
}

// BleveIndex wraps a Bleve index. An RWMutex guards against use after Close
// and makes the exists-then-write in IndexDocument atomic.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ index.Index = (*BleveIndex)(nil)

// NewBleveIndex opens the index at path, creating it if it does not exist.
// An empty path creates an in-memory index.
func NewBleveIndex(path string, logger *slog.Logger) (*BleveIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := newMapping()
	if err != nil {
		return nil, fmt.Errorf("build index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			logger.Info("creating search index", slog.String("component", "index"), slog.String("path", path))
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &BleveIndex{index: idx, path: path}, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomCharFilter(filenameSeparators, map[string]interface{}{
		"type":    regexpfilter.Name,
		"regexp":  `[._\-]`,
		"replace": " ",
	}); err != nil {
		return nil, err
	}
	if err := m.AddCustomAnalyzer(filenameAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{filenameSeparators},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}

	text := bleve.NewTextFieldMapping()
	text.Analyzer = filenameAnalyzer

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true
	content.IncludeTermVectors = true

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = false
	exact.IncludeInAll = false

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.IncludeInAll = false
	stored.IncludeTermVectors = false

	size := bleve.NewNumericFieldMapping()
	size.Index = false
	size.IncludeInAll = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(fieldFilename, text)
	doc.AddFieldMappingsAt(fieldFilenameKey, exact)
	doc.AddFieldMappingsAt(fieldContent, content)
	doc.AddFieldMappingsAt(fieldSize, size)
	for _, f := range []string{fieldPath, fieldContentType, fieldUploadDate, fieldAuthor, fieldCreationDate, fieldChecksum} {
		doc.AddFieldMappingsAt(f, stored)
	}

	m.DefaultAnalyzer = standard.Name
	m.DefaultMapping = doc
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *BleveIndex) IndexDocument(ctx context.Context, doc *model.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, index.ErrClosed
	}

	existing, err := b.index.Document(doc.ID)
	if err != nil {
		return false, fmt.Errorf("lookup document %s: %w", doc.ID, err)
	}
	if existing != nil {
		return false, nil
	}

	if err := b.index.Index(doc.ID, toRecord(doc)); err != nil {
		return false, fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return true, nil
}

func (b *BleveIndex) FindByFilename(ctx context.Context, filename string) ([]model.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, index.ErrClosed
	}

	hits, err := b.scan(ctx, filenameQuery(filename), []string{"*"})
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, fromFields(h.ID, h.Fields))
	}
	return docs, nil
}

func (b *BleveIndex) Search(ctx context.Context, q string, limit int) ([]index.Hit, error) {
	if strings.TrimSpace(q) == "" {
		return []index.Hit{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, index.ErrClosed
	}

	onFilename := bleve.NewMatchQuery(q)
	onFilename.SetField(fieldFilename)
	onContent := bleve.NewMatchQuery(q)
	onContent.SetField(fieldContent)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(onFilename, onContent), limit, 0, false)
	req.Fields = []string{"*"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(fieldContent)

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]index.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, index.Hit{
			Document:   fromFields(h.ID, h.Fields),
			Score:      h.Score,
			Highlights: h.Fragments[fieldContent],
		})
	}
	return hits, nil
}

func (b *BleveIndex) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, index.ErrClosed
	}

	hits, err := b.scan(ctx, filenameQuery(filename), nil)
	if err != nil {
		return 0, err
	}
	if len(hits) == 0 {
		return 0, nil
	}

	batch := b.index.NewBatch()
	for _, h := range hits {
		batch.Delete(h.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	return len(hits), nil
}

func (b *BleveIndex) ListFilenames(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, index.ErrClosed
	}

	hits, err := b.scan(ctx, bleve.NewMatchAllQuery(), []string{fieldFilename})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(hits))
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		name, _ := h.Fields[fieldFilename].(string)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *BleveIndex) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return index.ErrClosed
	}
	_, err := b.index.DocCount()
	return err
}

func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

// scan pages through every match of q. Callers hold b.mu.
func (b *BleveIndex) scan(ctx context.Context, q query.Query, fields []string) (search.DocumentMatchCollection, error) {
	var out search.DocumentMatchCollection
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		req.Fields = fields
		req.SortBy([]string{"_id"})

		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		out = append(out, res.Hits...)
		if len(res.Hits) < pageSize {
			return out, nil
		}
	}
}

func filenameQuery(filename string) query.Query {
	q := bleve.NewTermQuery(filename)
	q.SetField(fieldFilenameKey)
	return q
}

func toRecord(doc *model.Document) record {
	return record{
		Filename:     doc.Filename,
		FilenameKey:  doc.Filename,
		Path:         doc.Path,
		Size:         float64(doc.Size),
		ContentType:  doc.ContentType,
		UploadDate:   doc.UploadDate.UTC().Format(time.RFC3339Nano),
		Content:      doc.Content,
		Author:       doc.Author,
		CreationDate: doc.CreationDate,
		Checksum:     doc.Checksum,
	}
}

func fromFields(id string, fields map[string]interface{}) model.Document {
	str := func(key string) string {
		s, _ := fields[key].(string)
		return s
	}
	doc := model.Document{
		ID:           id,
		Filename:     str(fieldFilename),
		Path:         str(fieldPath),
		ContentType:  str(fieldContentType),
		Content:      str(fieldContent),
		Author:       str(fieldAuthor),
		CreationDate: str(fieldCreationDate),
		Checksum:     str(fieldChecksum),
	}
	if size, ok := fields[fieldSize].(float64); ok {
		doc.Size = int64(size)
	}
	if ts, err := time.Parse(time.RFC3339Nano, str(fieldUploadDate)); err == nil {
		doc.UploadDate = ts
	}
	return doc
}
