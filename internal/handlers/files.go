package handlers

import (
	"log"
	"mime/multipart"

	"github.com/filegate/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	registry *services.Registry
	logs     *services.RequestLogs
}

func NewFileHandler(registry *services.Registry, logs *services.RequestLogs) *FileHandler {
	return &FileHandler{registry: registry, logs: logs}
}

func (h *FileHandler) uploadOne(c *fiber.Ctx, bucket, path string, fh *multipart.FileHeader) (interface{}, error) {
	body, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ctx, cancel := opContext(c)
	defer cancel()

	return h.registry.Upload(ctx, services.UploadInput{
		Bucket:        bucket,
		FolderPath:    path,
		FileName:      fh.Filename,
		ContentType:   fh.Header.Get("Content-Type"),
		UserID:        c.Query("user_id"),
		Body:          body,
		CurrentFileID: c.Query("current_file_id"),
		Transform: services.TransformOptions{
			Format: c.Query("format"),
			Width:  c.QueryInt("width"),
			Height: c.QueryInt("height"),
		},
	})
}

// Upload stores a single multipart file
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Missing file in request",
		})
	}

	file, err := h.uploadOne(c, bucket, path, fh)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "File uploaded successfully",
		"data":    file,
	})
}

// UploadMultiple stores every file of a multipart form. Per-file failures
// are reported, not fatal.
func (h *FileHandler) UploadMultiple(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No files in request",
		})
	}

	uploaded := make([]interface{}, 0, len(form.File["files"]))
	failed := make([]fiber.Map, 0)
	for _, fh := range form.File["files"] {
		file, err := h.uploadOne(c, bucket, path, fh)
		if err != nil {
			log.Printf("Failed to upload %s to %s: %v", fh.Filename, bucket, err)
			failed = append(failed, fiber.Map{
				"file_name": fh.Filename,
				"error":     err.Error(),
			})
			continue
		}
		uploaded = append(uploaded, file)
	}

	return c.JSON(fiber.Map{
		"success":  len(failed) == 0,
		"uploaded": uploaded,
		"failed":   failed,
	})
}

// ListObjects returns one directory level of a bucket path
func (h *FileHandler) ListObjects(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}

	ctx, cancel := opContext(c)
	defer cancel()

	entries, err := h.registry.ListObjects(ctx, bucket, path)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"bucket_name": bucket,
		"folder_path": path,
		"objects":     entries,
	})
}

// DeleteObject removes one object and its metadata row
func (h *FileHandler) DeleteObject(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}

	fileID := c.Query("current_file_id")
	userID := c.Query("user_id")
	if fileID == "" || userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "current_file_id and user_id are required",
		})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.registry.DeleteObject(ctx, bucket, path, fileID, userID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Object deleted successfully",
	})
}

// Logs lists recorded download requests for a file
func (h *FileHandler) Logs(c *fiber.Ctx) error {
	ctx, cancel := opContext(c)
	defer cancel()

	logs, err := h.logs.ForFile(ctx, c.Params("file_id"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
	})
}
