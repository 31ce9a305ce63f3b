package service

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"docsearch/internal/extractor"
	"docsearch/internal/index"
	"docsearch/internal/index/bleveindex"
	"docsearch/internal/logging"
	"docsearch/internal/storage"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// harness wires both services over a real local store and in-memory index.
type harness struct {
	ingest  IngestService
	docs    DocumentService
	store   storage.Storage
	idx     index.Index
	metrics *Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	idx, err := bleveindex.NewBleveIndex("", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return newHarnessWith(t, store, idx, extractor.NewRegistry())
}

func newHarnessWith(t *testing.T, store storage.Storage, idx index.Index, ext extractor.Extractor) *harness {
	t.Helper()

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	logger := logging.Discard()

	return &harness{
		ingest: NewIngestService(store, idx, ext, metrics, logger, IngestOptions{
			Workers: 3,
			TempDir: t.TempDir(),
			Clock:   func() time.Time { return fixedNow },
		}),
		docs:    NewDocumentService(store, idx, metrics, logger, SearchOptions{DefaultLimit: 10, MaxLimit: 100}),
		store:   store,
		idx:     idx,
		metrics: metrics,
	}
}

func textFile(name, body string) UploadFile {
	return UploadFile{Filename: name, ContentType: "text/plain", Size: int64(len(body)), Reader: strings.NewReader(body)}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}
