package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (tokens are issued by the external session service; this service
	// only validates them)
	JWTSecret string

	// Service
	InventoryServiceURL string
	FrontendURL         string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Stats cache
	StatsCacheTTLSeconds string

	// Stale dispatch policy: fulfilled_dispatched requests older than this
	// are surfaced by the stale filter. The engine never auto-cancels.
	StaleDispatchAfterHours string

	// MinIO (proof-of-delivery attachments)
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string

	// Attachment limits
	AttachmentMaxFileSize  string
	AttachmentAllowedTypes string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "bloodlink"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-this"),

		// Service
		InventoryServiceURL: getEnv("INVENTORY_SERVICE_URL", "http://localhost:8010"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Stats cache
		StatsCacheTTLSeconds: getEnv("STATS_CACHE_TTL_SECONDS", "60"),

		// Stale dispatch policy
		StaleDispatchAfterHours: getEnv("STALE_DISPATCH_AFTER_HOURS", "48"),

		// MinIO Configuration
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "bloodlink-delivery-notes"),

		// Attachment limits
		AttachmentMaxFileSize:  getEnv("ATTACHMENT_MAX_FILE_SIZE", "20MB"),
		AttachmentAllowedTypes: getEnv("ATTACHMENT_ALLOWED_TYPES", ".pdf,.jpg,.jpeg,.png"),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetStatsCacheTTLSeconds returns the stats cache TTL as integer
func (c *Config) GetStatsCacheTTLSeconds() int {
	if value, err := strconv.Atoi(c.StatsCacheTTLSeconds); err == nil {
		return value
	}
	return 60
}

// GetStaleDispatchAfterHours returns the stale dispatch threshold as integer
func (c *Config) GetStaleDispatchAfterHours() int {
	if value, err := strconv.Atoi(c.StaleDispatchAfterHours); err == nil {
		return value
	}
	return 48
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
