package handlers

import (
	"fmt"

	"github.com/filegate/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type BucketHandler struct {
	buckets *services.Buckets
}

func NewBucketHandler(buckets *services.Buckets) *BucketHandler {
	return &BucketHandler{buckets: buckets}
}

// List returns all buckets with stats and visibility
func (h *BucketHandler) List(c *fiber.Ctx) error {
	ctx, cancel := opContext(c)
	defer cancel()

	buckets, err := h.buckets.List(ctx)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    buckets,
	})
}

// Create makes a new public versioned bucket
func (h *BucketHandler) Create(c *fiber.Ctx) error {
	bucket := c.Params("bucket")

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.buckets.Create(ctx, bucket); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Bucket '%s' created successfully", bucket),
	})
}

// Delete removes an empty, unprotected bucket
func (h *BucketHandler) Delete(c *fiber.Ctx) error {
	bucket := c.Params("bucket")

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.buckets.Delete(ctx, bucket); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Bucket '%s' deleted successfully", bucket),
	})
}

// Stats returns object count and total size for a bucket
func (h *BucketHandler) Stats(c *fiber.Ctx) error {
	bucket := c.Params("bucket")

	ctx, cancel := opContext(c)
	defer cancel()

	stats, err := h.buckets.Stats(ctx, bucket)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}
