package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docsearch/internal/http/middleware"
	"docsearch/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError translates service errors into HTTP responses.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidFilename):
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILENAME", "invalid filename")
	case errors.Is(err, service.ErrQueryRequired):
		return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query parameter is required")
	case errors.Is(err, service.ErrFileNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
	case errors.Is(err, service.ErrIndexUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "INDEX_UNAVAILABLE", "search index unavailable")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "upload exceeds the size limit")
		case fiber.StatusServiceUnavailable:
			return writeError(c, status, "SERVICE_UNAVAILABLE", "service unavailable")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
