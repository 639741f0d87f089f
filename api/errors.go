package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
)

var errLimit = errors.New("limit must be a positive integer")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, memory.ErrInvalidMetadata),
		errors.Is(err, memory.ErrMissingOwner),
		errors.Is(err, dedup.ErrInvalidPolicy),
		errors.Is(err, dedup.ErrInvalidThreshold):
		return fiber.StatusBadRequest
	case errors.Is(err, memory.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, memory.ErrEmbeddingUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged;
// the storage cause is not echoed to the client.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
		if memory.IsStorageError(err) {
			msg = "storage failure"
		}
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
