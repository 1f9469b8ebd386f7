package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/configs/env"
)

// Role names the service a process runs as. Validation depends on it.
type Role string

const (
	RoleStorage  Role = "storage"
	RoleAnalysis Role = "analysis"
	RoleGateway  Role = "gateway"
)

// Config holds all configuration for the textscan services
type Config struct {
	// Logging
	LogLevel  string
	LogPretty bool

	// Server ports
	StoragePort  string
	AnalysisPort string
	GatewayPort  string
	MetricsPort  string

	// Uploads
	UploadDir             string
	MaxUploadBytes        int64
	GatewayMaxUploadBytes int64
	AllowPDF              bool

	// Blob storage
	BlobBackend string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// Metadata snapshot + hash index
	MetadataBackend  string
	PostgresDSN      string
	MySQLDSN         string
	HashIndexBackend string

	// Redis
	RedisHost        string
	RedisPassword    string
	RedisDB          int
	CacheTTL         time.Duration
	FileEventsStream string
	FileEventsGroup  string

	// MongoDB
	MongoURI    string
	MongoDBName string

	// Upstreams
	StorageURL      string
	AnalysisURL     string
	UpstreamTimeout time.Duration

	// Word cloud
	WordCloudBaseURL string

	// Rate limiting
	RateLimitRPS float64

	// Batch comparisons
	MaxConcurrentBatch int
	BatchTimeout       time.Duration

	// Tracing
	OTelEndpoint string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogPretty = env.GetEnvBool("LOG_PRETTY", false)

	// Server ports
	cfg.StoragePort = env.GetEnv("STORAGE_PORT", "8001")
	cfg.AnalysisPort = env.GetEnv("ANALYSIS_PORT", "8002")
	cfg.GatewayPort = env.GetEnv("GATEWAY_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	// Uploads
	cfg.UploadDir = env.GetEnv("UPLOAD_DIR", "uploads")
	cfg.MaxUploadBytes = env.GetEnvInt64("MAX_UPLOAD_BYTES", 10*1024*1024)
	cfg.GatewayMaxUploadBytes = env.GetEnvInt64("GATEWAY_MAX_UPLOAD_BYTES", 1024*1024)
	cfg.AllowPDF = env.GetEnvBool("ALLOW_PDF", false)

	// Blob storage
	cfg.BlobBackend = env.GetEnv("BLOB_BACKEND", "disk")
	cfg.S3Endpoint = env.GetEnv("S3_ENDPOINT", "localhost:9000")
	cfg.S3AccessKey = env.GetEnv("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = env.GetEnv("S3_SECRET_KEY", "")
	cfg.S3Bucket = env.GetEnv("S3_BUCKET", "textscan-files")
	cfg.S3Region = env.GetEnv("S3_REGION", "us-east-1")
	cfg.S3UseSSL = env.GetEnvBool("S3_USE_SSL", false)

	// Metadata snapshot + hash index
	cfg.MetadataBackend = env.GetEnv("METADATA_BACKEND", "file")
	cfg.PostgresDSN = env.GetEnv("POSTGRES_DSN", "")
	cfg.MySQLDSN = env.GetEnv("MYSQL_DSN", "")
	cfg.HashIndexBackend = env.GetEnv("HASH_INDEX_BACKEND", "memory")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = env.GetEnvInt("REDIS_DB", 0)
	cfg.CacheTTL = env.GetEnvDuration("CACHE_TTL", 10*time.Minute)
	cfg.FileEventsStream = env.GetEnv("FILE_EVENTS_STREAM", "textscan:file-events")
	cfg.FileEventsGroup = env.GetEnv("FILE_EVENTS_GROUP", "textscan:analysis")

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "textscan")

	// Upstreams
	cfg.StorageURL = env.GetEnv("STORAGE_URL", "http://localhost:8001")
	cfg.AnalysisURL = env.GetEnv("ANALYSIS_URL", "http://localhost:8002")
	cfg.UpstreamTimeout = env.GetEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second)

	// Word cloud
	cfg.WordCloudBaseURL = env.GetEnv("WORDCLOUD_BASE_URL", "https://quickchart.io")

	// Rate limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Batch comparisons
	cfg.MaxConcurrentBatch = env.GetEnvInt("MAX_CONCURRENT_BATCH", 4)
	cfg.BatchTimeout = env.GetEnvDuration("BATCH_TIMEOUT", 5*time.Minute)

	// Tracing
	cfg.OTelEndpoint = env.GetEnv("OTEL_ENDPOINT", "")

	return cfg, nil
}

// Validate checks the settings the given role depends on.
func (c *Config) Validate(role Role) error {
	switch role {
	case RoleStorage:
		if c.StoragePort == "" {
			return fmt.Errorf("STORAGE_PORT is required")
		}
		if c.MaxUploadBytes <= 0 {
			return fmt.Errorf("MAX_UPLOAD_BYTES must be greater than 0")
		}
		switch c.BlobBackend {
		case "disk":
			if c.UploadDir == "" {
				return fmt.Errorf("UPLOAD_DIR is required for the disk blob backend")
			}
		case "minio":
			if c.S3AccessKey == "" || c.S3SecretKey == "" {
				return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required for the minio blob backend")
			}
		default:
			return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
		}
		switch c.MetadataBackend {
		case "file":
		case "postgres":
			if c.PostgresDSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required for the postgres metadata backend")
			}
		case "mysql":
			if c.MySQLDSN == "" {
				return fmt.Errorf("MYSQL_DSN is required for the mysql metadata backend")
			}
		default:
			return fmt.Errorf("unknown METADATA_BACKEND %q", c.MetadataBackend)
		}
		if c.HashIndexBackend != "memory" && c.HashIndexBackend != "redis" {
			return fmt.Errorf("unknown HASH_INDEX_BACKEND %q", c.HashIndexBackend)
		}
		if c.HashIndexBackend == "redis" && c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis hash index")
		}
	case RoleAnalysis:
		if c.AnalysisPort == "" {
			return fmt.Errorf("ANALYSIS_PORT is required")
		}
		if c.StorageURL == "" {
			return fmt.Errorf("STORAGE_URL is required")
		}
		if c.MaxConcurrentBatch <= 0 {
			return fmt.Errorf("MAX_CONCURRENT_BATCH must be greater than 0")
		}
	case RoleGateway:
		if c.GatewayPort == "" {
			return fmt.Errorf("GATEWAY_PORT is required")
		}
		if c.StorageURL == "" || c.AnalysisURL == "" {
			return fmt.Errorf("STORAGE_URL and ANALYSIS_URL are required")
		}
		if c.GatewayMaxUploadBytes <= 0 {
			return fmt.Errorf("GATEWAY_MAX_UPLOAD_BYTES must be greater than 0")
		}
		if c.RateLimitRPS <= 0 {
			return fmt.Errorf("RATE_LIMIT_RPS must be greater than 0")
		}
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be greater than 0")
	}
	return nil
}
