package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// API
	APIName string
	APIPort int
	APIKey  string

	// Public base URL used when building download links
	BaseURL string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    bool

	// Upload limits
	MaxFileSize int

	// Buckets that must never be deleted, and buckets whose objects
	// must never be deleted through the API.
	ProtectedBuckets       []string
	ProtectedObjectBuckets []string
}

func Load() *Config {
	// Optional .env file, same convention as docker-compose setups
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	apiKey := getEnv("API_KEY", "")
	if apiKey == "" {
		log.Println("WARNING: API_KEY not set - API authentication is disabled!")
	}

	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	minioSecret := getEnv("MINIO_SECRET_KEY", "")
	if minioSecret == "" {
		log.Println("WARNING: MINIO_SECRET_KEY not set - using insecure default!")
		minioSecret = "minioadmin"
	}

	return &Config{
		APIName: getEnv("API_NAME", "file-gateway"),
		APIPort: getEnvInt("API_PORT", 8080),
		APIKey:  apiKey,

		// Generated download URLs are built on this, so it must include
		// any route prefix the API is served under.
		BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080/api/v1"), "/"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "filegate"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "filegate"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB_INDEX", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: minioSecret,
		MinioSecure:    getEnvBool("MINIO_SECURE", false),

		MaxFileSize: getEnvInt("MAX_FILE_SIZE", 100*1024*1024),

		ProtectedBuckets:       getEnvList("PROTECTED_BUCKETS", "cdn,financial,products,tmp"),
		ProtectedObjectBuckets: getEnvList("PROTECTED_OBJECT_BUCKETS", "products,images,cdn"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
