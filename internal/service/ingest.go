package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"docsearch/internal/extractor"
	"docsearch/internal/index"
	"docsearch/internal/logging"
	"docsearch/internal/model"
	"docsearch/internal/storage"
)

const defaultContentType = "application/octet-stream"

// UploadFile is one file of an upload request. Size may be -1 when unknown.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// IngestService turns uploaded files into stored bytes plus index records.
type IngestService interface {
	// Ingest stores, extracts and indexes a single file. Failures are
	// reported through the result's status and warnings, never as an error.
	Ingest(ctx context.Context, f UploadFile) model.UploadResult

	// IngestBatch ingests files concurrently. Results follow input order and
	// one file failing never affects another.
	IngestBatch(ctx context.Context, files []UploadFile) []model.UploadResult
}

// IngestOptions tunes an IngestService. Zero values select defaults.
type IngestOptions struct {
	Workers int
	TempDir string
	Clock   func() time.Time
}

type ingestService struct {
	store     storage.Storage
	idx       index.Index
	extractor extractor.Extractor
	metrics   *Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	locks     *keyLock
	workers   int
	tempDir   string
	now       func() time.Time
}

// NewIngestService constructs a new IngestService.
func NewIngestService(store storage.Storage, idx index.Index, ext extractor.Extractor, metrics *Metrics, logger *slog.Logger, opt IngestOptions) IngestService {
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	if opt.Clock == nil {
		opt.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestService{
		store:     store,
		idx:       idx,
		extractor: ext,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "ingest")),
		tracer:    otel.Tracer("docsearch/internal/service"),
		locks:     newKeyLock(),
		workers:   opt.Workers,
		tempDir:   opt.TempDir,
		now:       opt.Clock,
	}
}

func (s *ingestService) IngestBatch(ctx context.Context, files []UploadFile) []model.UploadResult {
	ctx, span := s.tracer.Start(ctx, "ingest.batch", trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	results := make([]model.UploadResult, len(files))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range files {
		g.Go(func() error {
			results[i] = s.Ingest(ctx, files[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *ingestService) Ingest(ctx context.Context, f UploadFile) model.UploadResult {
	ctx, span := s.tracer.Start(ctx, "ingest.file", trace.WithAttributes(attribute.String("filename", f.Filename)))
	defer span.End()

	res := s.ingest(ctx, f)
	span.SetAttributes(attribute.String("status", res.Status), attribute.StringSlice("warnings", res.Warnings))
	if res.Status != model.StatusSuccess {
		span.SetStatus(codes.Error, "ingest failed")
	}
	s.metrics.ingested(res.Status)
	return res
}

func (s *ingestService) ingest(ctx context.Context, f UploadFile) model.UploadResult {
	res := model.UploadResult{Filename: f.Filename, Status: model.StatusSuccess}
	log := s.logger.With(slog.String("filename", f.Filename), slog.String("request_id", logging.RequestID(ctx)))

	if err := storage.ValidateKey(f.Filename); err != nil || f.Reader == nil {
		log.Warn("upload rejected", slog.String("reason", "invalid filename"))
		return fail(res, model.WarningInvalidFilename)
	}
	contentType := resolveContentType(f.Filename, f.ContentType)

	unlock := s.locks.Lock(f.Filename)
	defer unlock()

	spooled, err := s.spool(f)
	if err != nil {
		log.Error("spool upload failed", slog.String("error", err.Error()))
		return fail(res, model.WarningStoreFailed)
	}
	defer spooled.remove()

	info, err := s.persist(ctx, f.Filename, contentType, spooled)
	if err != nil {
		log.Error("store upload failed", slog.String("error", err.Error()))
		return fail(res, model.WarningStoreFailed)
	}

	extracted, err := s.extractor.Extract(ctx, spooled.path, contentType)
	if err != nil {
		log.Warn("text extraction failed",
			slog.String("content_type", contentType),
			slog.String("error", err.Error()),
		)
		s.metrics.extractionFailed(contentType)
		res.Warnings = append(res.Warnings, model.WarningExtractionFailed)
		extracted = extractor.Result{}
	}

	existing, err := s.idx.FindByFilename(ctx, f.Filename)
	if err != nil {
		log.Error("index lookup failed", slog.String("error", err.Error()))
		s.metrics.indexFailed(opFind)
		return warn(res, model.WarningIndexUnavailable)
	}
	if len(existing) > 0 {
		log.Info("already indexed, skipping", slog.String("id", existing[0].ID))
		return warn(res, model.WarningAlreadyIndexed)
	}

	doc := &model.Document{
		ID:           index.DocumentID(f.Filename),
		Filename:     f.Filename,
		Path:         info.Path,
		Size:         spooled.size,
		ContentType:  contentType,
		UploadDate:   s.now().UTC(),
		Content:      extracted.Text,
		Author:       orUnknown(extracted.Metadata.Author),
		CreationDate: orUnknown(extracted.Metadata.CreationDate),
		Checksum:     spooled.checksum,
	}
	created, err := s.idx.IndexDocument(ctx, doc)
	if err != nil {
		log.Error("index write failed", slog.String("error", err.Error()))
		s.metrics.indexFailed(opWrite)
		return warn(res, model.WarningIndexUnavailable)
	}
	if !created {
		return warn(res, model.WarningAlreadyIndexed)
	}

	log.Info("document indexed",
		slog.String("id", doc.ID),
		slog.String("content_type", contentType),
		slog.Int64("size", doc.Size),
	)
	return res
}

// spooledFile is an upload copied to local disk under its own name, so
// extractors and their errors see the original filename.
type spooledFile struct {
	dir      string
	path     string
	size     int64
	checksum string
}

func (s *ingestService) spool(f UploadFile) (*spooledFile, error) {
	dir, err := os.MkdirTemp(s.tempDir, "ingest-*")
	if err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	sf := &spooledFile{dir: dir, path: filepath.Join(dir, f.Filename)}

	out, err := os.Create(sf.path)
	if err != nil {
		sf.remove()
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), f.Reader)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		sf.remove()
		return nil, fmt.Errorf("copy upload: %w", err)
	}

	sf.size = n
	sf.checksum = hex.EncodeToString(h.Sum(nil))
	return sf, nil
}

func (sf *spooledFile) remove() {
	_ = os.RemoveAll(sf.dir)
}

func (s *ingestService) persist(ctx context.Context, key, contentType string, sf *spooledFile) (storage.ObjectInfo, error) {
	in, err := os.Open(sf.path)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	defer in.Close()

	return s.store.Put(ctx, key, in, storage.PutObjectOptions{
		Size:        sf.size,
		ContentType: contentType,
		Metadata:    map[string]string{"checksum-sha256": sf.checksum},
	})
}

func resolveContentType(filename, declared string) string {
	if declared != "" {
		return declared
	}
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return defaultContentType
}

func orUnknown(v string) string {
	if v == "" {
		return model.UnknownValue
	}
	return v
}

func fail(res model.UploadResult, warning string) model.UploadResult {
	res.Status = model.StatusError
	res.Warnings = append(res.Warnings, warning)
	return res
}

func warn(res model.UploadResult, warning string) model.UploadResult {
	res.Warnings = append(res.Warnings, warning)
	return res
}
