package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docsearch/internal/extractor"
	"docsearch/internal/index"
	idxMocks "docsearch/internal/index/mocks"
	"docsearch/internal/model"
	"docsearch/internal/storage"
	storeMocks "docsearch/internal/storage/mocks"
)

func TestDocumentService_Search(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ingest.Ingest(ctx, textFile("budget.txt", "The marketing budget doubled"))
	h.ingest.Ingest(ctx, UploadFile{Filename: "invoice.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("bad")})

	t.Run("highlight snippet", func(t *testing.T) {
		results, err := h.docs.Search(ctx, "budget", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "budget.txt", results[0].Filename)
		assert.Contains(t, results[0].Snippet, "budget")
		assert.Equal(t, model.UnknownValue, results[0].Author)
		assert.Equal(t, model.UnknownValue, results[0].CreationDate)
	})

	t.Run("no content falls back to placeholder", func(t *testing.T) {
		results, err := h.docs.Search(ctx, "invoice", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "No preview available", results[0].Snippet)
	})

	t.Run("blank query", func(t *testing.T) {
		_, err := h.docs.Search(ctx, "  ", 0)
		assert.ErrorIs(t, err, ErrQueryRequired)
	})
}

func TestDocumentService_SearchLimitAndErrors(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
		indexErr  error
		wantErr   error
	}{
		{name: "default limit", limit: 0, wantLimit: 10},
		{name: "explicit limit", limit: 25, wantLimit: 25},
		{name: "clamped to max", limit: 500, wantLimit: 100},
		{name: "index down", limit: 5, wantLimit: 5, indexErr: errors.New("no route to host"), wantErr: ErrIndexUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mIdx := new(idxMocks.MockIndex)
			h := newHarnessWith(t, new(storeMocks.MockStorage), mIdx, nil)

			if tt.indexErr != nil {
				mIdx.On("Search", mock.Anything, "q", tt.wantLimit).Return(nil, tt.indexErr)
			} else {
				mIdx.On("Search", mock.Anything, "q", tt.wantLimit).Return([]index.Hit{}, nil)
			}

			results, err := h.docs.Search(context.Background(), " q ", tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.indexErrors.WithLabelValues(opSearch)))
			} else {
				assert.NoError(t, err)
				assert.Empty(t, results)
			}
			mIdx.AssertExpectations(t)
		})
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("é", 250)

	tests := []struct {
		name string
		hit  index.Hit
		want string
	}{
		{
			name: "first highlight wins",
			hit:  index.Hit{Highlights: []string{"a <mark>hit</mark>", "second"}, Document: model.Document{Content: "full"}},
			want: "a <mark>hit</mark>",
		},
		{
			name: "short content verbatim",
			hit:  index.Hit{Document: model.Document{Content: "short body"}},
			want: "short body",
		},
		{
			name: "long content cut at 200 characters",
			hit:  index.Hit{Document: model.Document{Content: long}},
			want: strings.Repeat("é", 200),
		},
		{
			name: "empty content",
			hit:  index.Hit{Highlights: []string{""}},
			want: "No preview available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.hit))
		})
	}
}

func TestDocumentService_ListReconcilesDivergence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ingest.Ingest(ctx, textFile("both.txt", "in both"))
	_, err := h.store.Put(ctx, "stored-only.txt", strings.NewReader("orphan"), storage.PutObjectOptions{Size: 6})
	require.NoError(t, err)
	_, err = h.idx.IndexDocument(ctx, &model.Document{ID: index.DocumentID("indexed-only.txt"), Filename: "indexed-only.txt"})
	require.NoError(t, err)

	names, err := h.docs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"both.txt", "indexed-only.txt", "stored-only.txt"}, names)

	report, err := h.docs.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stored-only.txt"}, report.StoredOnly)
	assert.Equal(t, []string{"indexed-only.txt"}, report.IndexedOnly)
	assert.Equal(t, 1, report.Consistent)
}

func TestDocumentService_ListIncludesDotNamesStoredWhileIndexDown(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	mIdx := new(idxMocks.MockIndex)
	h := newHarnessWith(t, store, mIdx, extractor.NewRegistry())
	ctx := context.Background()

	mIdx.On("FindByFilename", mock.Anything, ".upload-notes.txt").Return(nil, errors.New("connection refused"))
	mIdx.On("ListFilenames", mock.Anything).Return([]string{}, nil)

	res := h.ingest.Ingest(ctx, textFile(".upload-notes.txt", "meeting notes"))
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, []string{model.WarningIndexUnavailable}, res.Warnings)

	names, err := h.docs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".upload-notes.txt"}, names)

	fc, err := h.docs.View(ctx, ".upload-notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", readAll(t, fc.Body))
	mIdx.AssertExpectations(t)
}

func TestDocumentService_ListIndexUnavailable(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mIdx := new(idxMocks.MockIndex)
	h := newHarnessWith(t, mStore, mIdx, nil)

	mStore.On("List", mock.Anything).Return([]string{"a.txt"}, nil)
	mIdx.On("ListFilenames", mock.Anything).Return(nil, errors.New("closed"))

	_, err := h.docs.List(context.Background())
	assert.ErrorIs(t, err, ErrIndexUnavailable)

	_, err = h.docs.CheckConsistency(context.Background())
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestDocumentService_ViewAndDownload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ingest.Ingest(ctx, UploadFile{Filename: "Scan.PDF", ContentType: "application/pdf", Size: 4, Reader: strings.NewReader("%PDF")})
	h.ingest.Ingest(ctx, textFile("notes.txt", "plain words"))

	t.Run("view pdf inline", func(t *testing.T) {
		fc, err := h.docs.View(ctx, "Scan.PDF")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", fc.ContentType)
		assert.Equal(t, "%PDF", readAll(t, fc.Body))
	})

	t.Run("view other types as octet stream", func(t *testing.T) {
		fc, err := h.docs.View(ctx, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", fc.ContentType)
		assert.Equal(t, "plain words", readAll(t, fc.Body))
	})

	t.Run("download keeps stored type", func(t *testing.T) {
		fc, err := h.docs.Download(ctx, "notes.txt")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(fc.ContentType, "text/plain"), fc.ContentType)
		assert.Equal(t, "notes.txt", fc.Filename)
		assert.Equal(t, int64(11), fc.Size)
		assert.Equal(t, "plain words", readAll(t, fc.Body))
	})

	t.Run("download returns declared type over extension", func(t *testing.T) {
		h.ingest.Ingest(ctx, UploadFile{Filename: "export.bin", ContentType: "text/csv", Size: 5, Reader: strings.NewReader("a,b,c")})

		fc, err := h.docs.Download(ctx, "export.bin")
		require.NoError(t, err)
		assert.Equal(t, "text/csv", fc.ContentType)
		assert.Equal(t, "a,b,c", readAll(t, fc.Body))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := h.docs.View(ctx, "nope.pdf")
		assert.ErrorIs(t, err, ErrFileNotFound)
		_, err = h.docs.Download(ctx, "nope.pdf")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		_, err := h.docs.View(ctx, "../secret")
		assert.ErrorIs(t, err, ErrInvalidFilename)
		_, err = h.docs.Download(ctx, "..")
		assert.ErrorIs(t, err, ErrInvalidFilename)
	})
}

func TestDocumentService_DeleteRemovesEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ingest.Ingest(ctx, textFile("gone.txt", "ephemeral content"))
	h.ingest.Ingest(ctx, textFile("kept.txt", "ephemeral too"))

	removed, err := h.docs.Delete(ctx, "gone.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = h.docs.View(ctx, "gone.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)

	results, err := h.docs.Search(ctx, "ephemeral", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept.txt", results[0].Filename)

	names, err := h.docs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.txt"}, names)

	_, err = h.docs.Delete(ctx, "gone.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestDocumentService_DeleteStoredOnlyRemovesZeroRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.store.Put(ctx, "orphan.txt", strings.NewReader("x"), storage.PutObjectOptions{Size: 1})
	require.NoError(t, err)

	removed, err := h.docs.Delete(ctx, "orphan.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestDocumentService_DeleteIndexedOnlyIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.idx.IndexDocument(ctx, &model.Document{ID: index.DocumentID("ghost.txt"), Filename: "ghost.txt"})
	require.NoError(t, err)

	_, err = h.docs.Delete(ctx, "ghost.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestDocumentService_DeleteErrors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		setupMocks func(mStore *storeMocks.MockStorage, mIdx *idxMocks.MockIndex)
		wantErr    error
		wantMsg    string
	}{
		{
			name:       "invalid filename",
			filename:   "a/b",
			setupMocks: func(mStore *storeMocks.MockStorage, mIdx *idxMocks.MockIndex) {},
			wantErr:    ErrInvalidFilename,
		},
		{
			name:     "stat fails",
			filename: "a.txt",
			setupMocks: func(mStore *storeMocks.MockStorage, mIdx *idxMocks.MockIndex) {
				mStore.On("Stat", mock.Anything, "a.txt").Return(storage.ObjectInfo{}, errors.New("io error"))
			},
			wantMsg: "stat stored file: io error",
		},
		{
			name:     "index cleanup fails",
			filename: "a.txt",
			setupMocks: func(mStore *storeMocks.MockStorage, mIdx *idxMocks.MockIndex) {
				mStore.On("Stat", mock.Anything, "a.txt").Return(storage.ObjectInfo{Key: "a.txt"}, nil)
				mStore.On("Delete", mock.Anything, "a.txt").Return(nil)
				mIdx.On("DeleteByFilename", mock.Anything, "a.txt").Return(0, errors.New("index closed"))
			},
			wantErr: ErrIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mIdx := new(idxMocks.MockIndex)
			tt.setupMocks(mStore, mIdx)
			h := newHarnessWith(t, mStore, mIdx, nil)

			_, err := h.docs.Delete(context.Background(), tt.filename)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.EqualError(t, err, tt.wantMsg)
			}
			mStore.AssertExpectations(t)
			mIdx.AssertExpectations(t)
		})
	}
}
