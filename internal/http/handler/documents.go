package handler

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docsearch/internal/model"
	"docsearch/internal/service"
)

const uploadField = "files"

type welcomeResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	UploadedFiles []model.UploadResult `json:"uploaded_files"`
}

type searchResponse struct {
	Results []model.SearchResult `json:"results"`
}

type filesResponse struct {
	Files []string `json:"files"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Welcome
//
// @Summary Service banner
// @Tags documents
// @Produce json
// @Success 200 {object} welcomeResponse
// @Router / [get]
func Welcome() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(welcomeResponse{Message: "Welcome to the Document Search API!"})
	}
}

// UploadFiles ingests every part of the multipart field "files". Per-file
// problems are reported in the body; the request itself still succeeds.
//
// @Summary Upload and index files
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "files to ingest (repeatable)"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Router /upload/ [post]
func UploadFiles(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil || len(form.File[uploadField]) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "at least one file is required in field \"files\"")
		}

		headers := form.File[uploadField]
		files := make([]service.UploadFile, len(headers))
		for i, fh := range headers {
			files[i] = service.UploadFile{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get(fiber.HeaderContentType),
				Size:        fh.Size,
			}
			f, err := fh.Open()
			if err != nil {
				files[i].Reader = errReader{err: fmt.Errorf("open upload part: %w", err)}
				continue
			}
			defer f.Close()
			files[i].Reader = f
		}

		results := svc.IngestBatch(c.UserContext(), files)
		return c.JSON(uploadResponse{UploadedFiles: results})
	}
}

// errReader stands in for a part that could not be opened, so the
// failure surfaces as that file's result.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// SearchDocuments
//
// @Summary Full-text search
// @Tags documents
// @Produce json
// @Param query query string true "search terms"
// @Param limit query int false "maximum number of results"
// @Success 200 {object} searchResponse
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /search/ [get]
func SearchDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("query")
		if query == "" {
			return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query parameter is required")
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			}
			limit = n
		}

		results, err := svc.Search(c.UserContext(), query, limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(searchResponse{Results: results})
	}
}

// ViewFile streams a stored file for inline display.
//
// @Summary View a stored file
// @Tags files
// @Produce application/pdf,application/octet-stream
// @Param filename path string true "stored filename"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /view/{filename} [get]
func ViewFile(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, ok := filenameParam(c)
		if !ok {
			return writeServiceError(c, service.ErrInvalidFilename)
		}
		fc, err := svc.View(c.UserContext(), name)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, fc.ContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition("inline", name))
		return c.SendStream(fc.Body, int(fc.Size))
	}
}

// ListFiles
//
// @Summary List stored and indexed filenames
// @Tags files
// @Produce json
// @Success 200 {object} filesResponse
// @Failure 503 {object} errorPayload
// @Router /files/ [get]
func ListFiles(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(filesResponse{Files: names})
	}
}

// DownloadFile
//
// @Summary Download a stored file
// @Tags files
// @Produce application/octet-stream
// @Param filename path string true "stored filename"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /files/{filename} [get]
func DownloadFile(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, ok := filenameParam(c)
		if !ok {
			return writeServiceError(c, service.ErrInvalidFilename)
		}
		fc, err := svc.Download(c.UserContext(), name)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, fc.ContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition("attachment", name))
		return c.SendStream(fc.Body, int(fc.Size))
	}
}

// DeleteFile
//
// @Summary Delete a stored file and its index records
// @Tags files
// @Produce json
// @Param filename path string true "stored filename"
// @Success 200 {object} messageResponse
// @Failure 404 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /files/{filename} [delete]
func DeleteFile(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, ok := filenameParam(c)
		if !ok {
			return writeServiceError(c, service.ErrInvalidFilename)
		}
		if _, err := svc.Delete(c.UserContext(), name); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Message: fmt.Sprintf("File '%s' has been deleted", name)})
	}
}

// Consistency
//
// @Summary Compare stored files with indexed records
// @Tags admin
// @Produce json
// @Success 200 {object} model.ConsistencyReport
// @Failure 503 {object} errorPayload
// @Router /admin/consistency [get]
func Consistency(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.CheckConsistency(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(report)
	}
}

func filenameParam(c *fiber.Ctx) (string, bool) {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

func contentDisposition(kind, filename string) string {
	return fmt.Sprintf("%s; filename=%q; filename*=UTF-8''%s", kind, filename, url.PathEscape(filename))
}
