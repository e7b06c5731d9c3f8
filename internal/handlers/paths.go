package handlers

import (
	"fmt"

	"github.com/filegate/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

type PathHandler struct {
	folders *storage.FolderEngine
}

func NewPathHandler(folders *storage.FolderEngine) *PathHandler {
	return &PathHandler{folders: folders}
}

// Create makes a folder path inside a bucket
func (h *PathHandler) Create(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}

	ctx, cancel := opContext(c)
	defer cancel()

	created, err := h.folders.CreatePath(ctx, bucket, path)
	if err != nil {
		return fail(c, err)
	}

	if !created {
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Folder '%s' already exists in bucket '%s'", path, bucket),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Folder '%s' created in bucket '%s'", path, bucket),
	})
}

// Delete removes an empty folder path from a bucket
func (h *PathHandler) Delete(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.folders.DeletePath(ctx, bucket, path); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Folder '%s' deleted from bucket '%s'", path, bucket),
	})
}
