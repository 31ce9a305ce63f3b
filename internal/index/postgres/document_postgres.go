// Package postgres implements index.Index on PostgreSQL full-text search.
// Ranking uses ts_rank over a generated tsvector column and highlights come
// from ts_headline. Schema lives in internal/database/migration.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"docsearch/internal/index"
	"docsearch/internal/model"
)

const (
	highlightStart = "<mark>"
	highlightStop  = "</mark>"
)

const documentColumns = `id, filename, path, size, content_type, upload_date, content, author, creation_date, checksum`

// DocumentPostgres is a PostgreSQL implementation of index.Index.
// It uses database/sql with parameterized queries; pooling is left to *sql.DB.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres index.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ index.Index = (*DocumentPostgres)(nil)

// IndexDocument inserts doc unless a row with the same id already exists.
func (r *DocumentPostgres) IndexDocument(ctx context.Context, doc *model.Document) (bool, error) {
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q,
		doc.ID,
		doc.Filename,
		doc.Path,
		doc.Size,
		doc.ContentType,
		doc.UploadDate,
		doc.Content,
		doc.Author,
		doc.CreationDate,
		doc.Checksum,
	)
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}
	return n == 1, nil
}

// FindByFilename fetches the rows whose filename matches exactly.
func (r *DocumentPostgres) FindByFilename(ctx context.Context, filename string) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE filename = $1
	`
	rows, err := r.db.QueryContext(ctx, q, filename)
	if err != nil {
		return nil, fmt.Errorf("find by filename: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0, 1)
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(scanTargets(&d)...); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Search ranks rows matching the websearch-style query.
func (r *DocumentPostgres) Search(ctx context.Context, query string, limit int) ([]index.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []index.Hit{}, nil
	}

	const q = `
		SELECT ` + documentColumns + `,
		       ts_rank(search_vector, q) AS score,
		       ts_headline('english', content, q, 'StartSel=<mark>, StopSel=</mark>, MaxFragments=1, MaxWords=35, MinWords=15') AS headline
		FROM documents, (websearch_to_tsquery('english', $1) || websearch_to_tsquery('english', $2)) AS q
		WHERE search_vector @@ q
		ORDER BY score DESC, filename
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, q, query, splitNameSeparators(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	hits := make([]index.Hit, 0)
	for rows.Next() {
		var (
			h        index.Hit
			headline string
		)
		targets := append(scanTargets(&h.Document), &h.Score, &headline)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		// ts_headline falls back to the leading words when content has no match.
		if strings.Contains(headline, highlightStart) {
			h.Highlights = []string{headline}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// splitNameSeparators turns '.', '_' and '-' between letters or digits into
// spaces, matching how filenames are tokenized in search_vector. A leading
// '-' is kept so websearch exclusion still works.
func splitNameSeparators(query string) string {
	rs := []rune(query)
	out := make([]rune, len(rs))
	for i, c := range rs {
		out[i] = c
		if c != '.' && c != '_' && c != '-' {
			continue
		}
		if i > 0 && i < len(rs)-1 && isWordRune(rs[i-1]) && isWordRune(rs[i+1]) {
			out[i] = ' '
		}
	}
	return string(out)
}

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

// DeleteByFilename removes every row for filename and reports how many went.
func (r *DocumentPostgres) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	const q = `DELETE FROM documents WHERE filename = $1`
	res, err := r.db.ExecContext(ctx, q, filename)
	if err != nil {
		return 0, fmt.Errorf("delete by filename: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete by filename: %w", err)
	}
	return int(n), nil
}

// ListFilenames returns all indexed filenames in order.
func (r *DocumentPostgres) ListFilenames(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT filename FROM documents ORDER BY filename`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list filenames: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (r *DocumentPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *DocumentPostgres) Close() error {
	return r.db.Close()
}

func scanTargets(d *model.Document) []any {
	return []any{
		&d.ID,
		&d.Filename,
		&d.Path,
		&d.Size,
		&d.ContentType,
		&d.UploadDate,
		&d.Content,
		&d.Author,
		&d.CreationDate,
		&d.Checksum,
	}
}
