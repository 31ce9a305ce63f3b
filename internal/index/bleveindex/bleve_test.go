package bleveindex

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/index"
	"docsearch/internal/logging"
	"docsearch/internal/model"
)

func newMem(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func newDoc(filename, content string) *model.Document {
	return &model.Document{
		ID:           index.DocumentID(filename),
		Filename:     filename,
		Path:         "uploads/" + filename,
		Size:         int64(len(content)),
		ContentType:  "text/plain",
		UploadDate:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Content:      content,
		Author:       "Ada",
		CreationDate: "D:20240101",
		Checksum:     "abc123",
	}
}

func TestBleveIndex_IndexAndFind(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	created, err := idx.IndexDocument(ctx, newDoc("notes.txt", "quarterly revenue figures"))
	require.NoError(t, err)
	assert.True(t, created)

	docs, err := idx.FindByFilename(ctx, "notes.txt")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got := docs[0]
	assert.Equal(t, index.DocumentID("notes.txt"), got.ID)
	assert.Equal(t, "notes.txt", got.Filename)
	assert.Equal(t, "uploads/notes.txt", got.Path)
	assert.Equal(t, int64(25), got.Size)
	assert.Equal(t, "text/plain", got.ContentType)
	assert.Equal(t, "quarterly revenue figures", got.Content)
	assert.Equal(t, "Ada", got.Author)
	assert.Equal(t, "D:20240101", got.CreationDate)
	assert.Equal(t, "abc123", got.Checksum)
	assert.True(t, got.UploadDate.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestBleveIndex_FindByFilenameIsExact(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	_, err := idx.IndexDocument(ctx, newDoc("Annual Report.pdf", "x"))
	require.NoError(t, err)

	for _, name := range []string{"annual report.pdf", "Annual", "Report.pdf"} {
		docs, err := idx.FindByFilename(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, docs, name)
	}

	docs, err := idx.FindByFilename(ctx, "Annual Report.pdf")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestBleveIndex_IndexDocumentIsInsertIfAbsent(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	created, err := idx.IndexDocument(ctx, newDoc("a.txt", "original"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = idx.IndexDocument(ctx, newDoc("a.txt", "replacement"))
	require.NoError(t, err)
	assert.False(t, created)

	docs, err := idx.FindByFilename(ctx, "a.txt")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "original", docs[0].Content)
}

func TestBleveIndex_ConcurrentInsertCreatesOnce(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := idx.IndexDocument(ctx, newDoc("race.txt", "same"))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	docs, err := idx.FindByFilename(ctx, "race.txt")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestBleveIndex_Search(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	_, err := idx.IndexDocument(ctx, newDoc("budget.txt", "The marketing budget grew this year"))
	require.NoError(t, err)
	_, err = idx.IndexDocument(ctx, newDoc("roadmap.txt", "Engineering roadmap for the platform"))
	require.NoError(t, err)
	_, err = idx.IndexDocument(ctx, newDoc("invoice.pdf", ""))
	require.NoError(t, err)

	t.Run("content match has highlight", func(t *testing.T) {
		hits, err := idx.Search(ctx, "budget", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "budget.txt", hits[0].Document.Filename)
		assert.Greater(t, hits[0].Score, 0.0)
		require.NotEmpty(t, hits[0].Highlights)
		assert.Contains(t, hits[0].Highlights[0], "budget")
	})

	t.Run("filename match without content", func(t *testing.T) {
		hits, err := idx.Search(ctx, "invoice", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "invoice.pdf", hits[0].Document.Filename)
		assert.Empty(t, hits[0].Highlights)
	})

	t.Run("limit", func(t *testing.T) {
		hits, err := idx.Search(ctx, "budget roadmap", 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("no match", func(t *testing.T) {
		hits, err := idx.Search(ctx, "zebra", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("blank query", func(t *testing.T) {
		hits, err := idx.Search(ctx, "   ", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestBleveIndex_SearchFilenameWords(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	for _, name := range []string{"invoice.pdf", "q3_report-final.docx", "Notes.TXT"} {
		_, err := idx.IndexDocument(ctx, newDoc(name, ""))
		require.NoError(t, err)
	}

	tests := []struct {
		query string
		want  string
	}{
		{query: "invoice", want: "invoice.pdf"},
		{query: "invoice.pdf", want: "invoice.pdf"},
		{query: "report", want: "q3_report-final.docx"},
		{query: "final", want: "q3_report-final.docx"},
		{query: "q3", want: "q3_report-final.docx"},
		{query: "notes", want: "Notes.TXT"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, err := idx.Search(ctx, tt.query, 10)
			require.NoError(t, err)
			require.NotEmpty(t, hits)
			assert.Equal(t, tt.want, hits[0].Document.Filename)
		})
	}

	docs, err := idx.FindByFilename(ctx, "q3_report-final.docx")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	docs, err = idx.FindByFilename(ctx, "report")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBleveIndex_DeleteByFilename(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	_, err := idx.IndexDocument(ctx, newDoc("keep.txt", "alpha"))
	require.NoError(t, err)
	_, err = idx.IndexDocument(ctx, newDoc("drop.txt", "alpha"))
	require.NoError(t, err)

	removed, err := idx.DeleteByFilename(ctx, "drop.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = idx.DeleteByFilename(ctx, "drop.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	hits, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep.txt", hits[0].Document.Filename)
}

func TestBleveIndex_ListFilenames(t *testing.T) {
	idx := newMem(t)
	ctx := context.Background()

	names, err := idx.ListFilenames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	for i := 0; i < 25; i++ {
		_, err := idx.IndexDocument(ctx, newDoc(fmt.Sprintf("doc-%02d.txt", i), "body"))
		require.NoError(t, err)
	}

	names, err = idx.ListFilenames(ctx)
	require.NoError(t, err)
	require.Len(t, names, 25)
	assert.Equal(t, "doc-00.txt", names[0])
	assert.Equal(t, "doc-24.txt", names[24])
}

func TestBleveIndex_Closed(t *testing.T) {
	idx, err := NewBleveIndex("", logging.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Ping(ctx))
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	assert.ErrorIs(t, idx.Ping(ctx), index.ErrClosed)
	_, err = idx.IndexDocument(ctx, newDoc("a.txt", "x"))
	assert.ErrorIs(t, err, index.ErrClosed)
	_, err = idx.Search(ctx, "x", 10)
	assert.ErrorIs(t, err, index.ErrClosed)
	_, err = idx.ListFilenames(ctx)
	assert.ErrorIs(t, err, index.ErrClosed)
	_, err = idx.DeleteByFilename(ctx, "a.txt")
	assert.ErrorIs(t, err, index.ErrClosed)
}

func TestBleveIndex_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "docs.bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path, logging.Discard())
	require.NoError(t, err)
	_, err = idx.IndexDocument(ctx, newDoc("saved.txt", "persisted words"))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := NewBleveIndex(path, logging.Discard())
	require.NoError(t, err)
	defer reopened.Close()

	docs, err := reopened.FindByFilename(ctx, "saved.txt")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "persisted words", docs[0].Content)
}
