package handler

import (
	"github.com/gofiber/fiber/v2"

	"docsearch/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Routing is non-strict, so "/upload" and "/upload/" reach the same handler.
func RegisterRoutes(app *fiber.App, idx Pinger, ingestSvc service.IngestService, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(idx))
	app.Get("/healthz", LivenessProbe())

	app.Get("/", Welcome())
	app.Post("/upload/", UploadFiles(ingestSvc))
	app.Get("/search/", SearchDocuments(docSvc))
	app.Get("/view/:filename", ViewFile(docSvc))

	app.Get("/files/", ListFiles(docSvc))
	app.Get("/files/:filename", DownloadFile(docSvc))
	app.Delete("/files/:filename", DeleteFile(docSvc))

	app.Get("/admin/consistency", Consistency(docSvc))
}
