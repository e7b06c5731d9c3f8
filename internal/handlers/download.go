package handlers

import (
	"fmt"
	"time"

	"github.com/filegate/backend/internal/services"
	"github.com/filegate/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// defaultSessionTTL matches the historical default for generated links.
const defaultSessionTTL = 12

type DownloadHandler struct {
	registry  *services.Registry
	sessions  *services.Sessions
	downloads *services.Downloads
	archiver  *services.Archiver
	logs      *services.RequestLogs
	store     storage.ObjectStore
}

func NewDownloadHandler(
	registry *services.Registry,
	sessions *services.Sessions,
	downloads *services.Downloads,
	archiver *services.Archiver,
	logs *services.RequestLogs,
	store storage.ObjectStore,
) *DownloadHandler {
	return &DownloadHandler{
		registry:  registry,
		sessions:  sessions,
		downloads: downloads,
		archiver:  archiver,
		logs:      logs,
		store:     store,
	}
}

func (h *DownloadHandler) logRequest(c *fiber.Ctx, fileID string) {
	h.logs.Log(c.Context(), fileID, clientIP(c), c.Get("user-agent"), c.Get("project-name"))
}

// GenerateMinioURL returns a short-lived presigned object-store URL
func (h *DownloadHandler) GenerateMinioURL(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}
	fileID := c.Query("current_file_id")
	expiry := time.Duration(c.QueryInt("expiry_seconds", defaultSessionTTL)) * time.Second

	ctx, cancel := opContext(c)
	defer cancel()

	file, err := h.registry.GetFile(ctx, bucket, path, fileID)
	if err != nil {
		return fail(c, err)
	}

	url, err := h.store.PresignedGetURL(ctx, bucket, file.ObjectKey(), expiry)
	if err != nil {
		return fail(c, fmt.Errorf("failed to generate presigned URL: %w", err))
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Presigned URL generated successfully",
		"bucket_name":   bucket,
		"folder_path":   path,
		"file_key":      file.FileKey,
		"presigned_url": url,
		"expires_in":    int(expiry.Seconds()),
	})
}

// GenerateAPIURL issues a download session and returns its redemption URL
func (h *DownloadHandler) GenerateAPIURL(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}
	fileID := c.Query("current_file_id")
	ttl := time.Duration(c.QueryInt("expiry_seconds", defaultSessionTTL)) * time.Second

	ctx, cancel := opContext(c)
	defer cancel()

	session, err := h.sessions.Issue(ctx, bucket, path, fileID, ttl)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"message":           "Presigned API URL generated successfully",
		"bucket_name":       bucket,
		"folder_path":       path,
		"file_key":          session.FileKey,
		"api_presigned_url": session.URL,
		"expires_in":        int(session.ExpiresIn.Seconds()),
	})
}

// Base64 returns the object content as a base64 data URL
func (h *DownloadHandler) Base64(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path, ok := folderPathParam(c)
	if !ok {
		return nil
	}
	fileID := c.Query("current_file_id")

	ctx, cancel := opContext(c)
	defer cancel()

	file, err := h.registry.GetFile(ctx, bucket, path, fileID)
	if err != nil {
		return fail(c, err)
	}
	h.logRequest(c, file.ID.String())

	encoded, err := h.downloads.OpenBase64(ctx, file, bucket, file.ObjectKey(),
		c.Query("version_id"), c.QueryInt("width"), c.QueryInt("height"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"file_name": file.FileName,
		"file_type": file.FileType,
		"data":      encoded,
	})
}

// PublicURL streams a file by its id
func (h *DownloadHandler) PublicURL(c *fiber.Ctx) error {
	ctx, cancel := opContext(c)
	defer cancel()

	file, err := h.registry.GetFileByID(ctx, c.Params("file_id"))
	if err != nil {
		return fail(c, err)
	}
	h.logRequest(c, file.ID.String())

	versionID := c.Query("version_id")
	if versionID == "" {
		versionID = file.VersionID
	}

	stream, err := h.downloads.Open(c.Context(), file, file.BucketName, file.ObjectKey(),
		versionID, c.QueryInt("width"), c.QueryInt("height"))
	if err != nil {
		return fail(c, err)
	}

	return h.send(c, stream)
}

// APIURL redeems a download session and streams the file it points at
func (h *DownloadHandler) APIURL(c *fiber.Ctx) error {
	ctx, cancel := opContext(c)
	defer cancel()

	resolved, err := h.sessions.Redeem(ctx, c.Params("session_id"))
	if err != nil {
		return fail(c, err)
	}
	h.logRequest(c, resolved.File.ID.String())

	stream, err := h.downloads.Open(c.Context(), resolved.File, resolved.Bucket,
		resolved.ObjectKey, resolved.VersionID, c.QueryInt("width"), c.QueryInt("height"))
	if err != nil {
		return fail(c, err)
	}

	return h.send(c, stream)
}

func (h *DownloadHandler) send(c *fiber.Ctx, stream *services.Stream) error {
	c.Set(fiber.HeaderContentType, stream.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", stream.FileName))
	return c.SendStream(stream.Body)
}

// ZipFilesRequest selects the files to package
type ZipFilesRequest struct {
	FileIDs    []string `json:"file_ids"`
	BucketName string   `json:"bucket_name"`
}

// ZipFiles packages the requested files into one zip download
func (h *DownloadHandler) ZipFiles(c *fiber.Ctx) error {
	var req ZipFilesRequest
	if err := c.BodyParser(&req); err != nil || len(req.FileIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "file_ids is required",
		})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	files, err := h.archiver.Files(ctx, req.FileIDs, req.BucketName)
	if err != nil {
		return fail(c, err)
	}
	data, err := h.archiver.Zip(ctx, files)
	if err != nil {
		return fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="files.zip"`)
	return c.Send(data)
}
