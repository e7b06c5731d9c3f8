package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/filegate/backend/internal/config"
	"github.com/filegate/backend/internal/database"
	"github.com/filegate/backend/internal/handlers"
	"github.com/filegate/backend/internal/middleware"
	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/services"
	"github.com/filegate/backend/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database and Redis
	stores, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to backing stores: %v", err)
	}
	defer stores.Close()

	// Run migrations
	if err := models.AutoMigrate(stores.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to object storage
	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create MinIO client: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		cancel()
		log.Fatalf("Failed to reach MinIO at %s: %v", cfg.MinioEndpoint, err)
	}
	cancel()
	log.Printf("Connected to MinIO at %s", cfg.MinioEndpoint)

	// Wire services
	folders := storage.NewFolderEngine(store)
	registry := services.NewRegistry(stores.DB, store, folders, cfg.BaseURL, cfg.ProtectedObjectBuckets)
	sessions := services.NewSessions(stores.DB, services.NewRedisSessionCache(stores.Redis), cfg.BaseURL)
	downloads := services.NewDownloads(stores.DB, store)
	buckets := services.NewBuckets(stores.DB, store, cfg.ProtectedBuckets)
	archiver := services.NewArchiver(stores.DB, store)
	requestLogs := services.NewRequestLogs(stores.DB)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      cfg.APIName,
		ServerHeader: cfg.APIName,
		BodyLimit:    cfg.MaxFileSize,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": cfg.APIName,
		})
	})

	// Initialize handlers
	pathHandler := handlers.NewPathHandler(folders)
	fileHandler := handlers.NewFileHandler(registry, requestLogs)
	bucketHandler := handlers.NewBucketHandler(buckets)
	downloadHandler := handlers.NewDownloadHandler(registry, sessions, downloads, archiver, requestLogs, store)

	// API routes
	api := app.Group("/api/v1")
	api.Use(middleware.RateLimiter(100, 1*time.Minute))
	api.Use(middleware.APIKey(cfg.APIKey))

	files := api.Group("/files")

	// Folder paths
	files.Post("/create-path/:bucket/*", pathHandler.Create)
	files.Delete("/delete-path/:bucket/*", pathHandler.Delete)

	// Uploads
	files.Post("/upload/multiple/:bucket/*", fileHandler.UploadMultiple)
	files.Post("/upload/:bucket/*", fileHandler.Upload)

	// Buckets
	files.Get("/buckets", bucketHandler.List)
	files.Post("/buckets/:bucket", bucketHandler.Create)
	files.Delete("/buckets/:bucket", bucketHandler.Delete)
	files.Get("/bucket/stats/:bucket", bucketHandler.Stats)

	// Objects
	files.Get("/objects/:bucket/*", fileHandler.ListObjects)
	files.Delete("/objects/:bucket/*", fileHandler.DeleteObject)

	// URL generation
	files.Get("/generate/minio-url/:bucket/*", downloadHandler.GenerateMinioURL)
	files.Get("/generate/api-url/:bucket/*", downloadHandler.GenerateAPIURL)

	// Downloads
	files.Get("/download/base64/:bucket/*", downloadHandler.Base64)
	files.Get("/download/public-url/:file_id", downloadHandler.PublicURL)
	files.Get("/download/api-url/:session_id", downloadHandler.APIURL)
	files.Post("/download/zip-files", downloadHandler.ZipFiles)

	// Request logs
	files.Get("/logs/:file_id", fileHandler.Logs)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("%s listening on %s", cfg.APIName, addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
