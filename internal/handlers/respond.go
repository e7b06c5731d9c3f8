package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/filegate/backend/internal/services"
	"github.com/filegate/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// opTimeout bounds non-streaming calls against the backing stores.
const opTimeout = 30 * time.Second

func opContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), opTimeout)
}

// fail maps service errors to HTTP responses. Anything that is not a known
// sentinel is logged in full and surfaced as a generic 500.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, storage.ErrBucketNotFound),
		errors.Is(err, storage.ErrPathNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrProtectedBucket),
		errors.Is(err, services.ErrUnsupported),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, storage.ErrReservedPath):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrBucketConflict),
		errors.Is(err, services.ErrBucketNotEmpty),
		errors.Is(err, storage.ErrBucketExists),
		errors.Is(err, storage.ErrBucketNotEmpty),
		errors.Is(err, storage.ErrPathNotEmpty):
		status = fiber.StatusConflict
	}

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		message = "Internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// folderPathParam normalizes and validates the wildcard segment. The second
// return is false when the shape is invalid; the 404 response has already
// been written in that case.
func folderPathParam(c *fiber.Ctx) (string, bool) {
	path := storage.NormalizeFolderPath(c.Params("*"))
	if !storage.ValidFolderPath(path) {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Folder path is not valid",
		})
		return "", false
	}
	return path, true
}

func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("x-forwarded-for"); forwarded != "" {
		return forwarded
	}
	return c.IP()
}
