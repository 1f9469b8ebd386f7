package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.GatewayMaxUploadBytes != 1024*1024 {
		t.Errorf("GatewayMaxUploadBytes = %d", cfg.GatewayMaxUploadBytes)
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("UpstreamTimeout = %v", cfg.UpstreamTimeout)
	}
	for _, role := range []Role{RoleStorage, RoleAnalysis, RoleGateway} {
		if err := cfg.Validate(role); err != nil {
			t.Errorf("Validate(%s) with defaults: %v", role, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		mutate  func(*Config)
		wantErr string
	}{
		{"minio needs keys", RoleStorage, func(c *Config) { c.BlobBackend = "minio" }, "S3_ACCESS_KEY"},
		{"unknown blob backend", RoleStorage, func(c *Config) { c.BlobBackend = "tape" }, "BLOB_BACKEND"},
		{"postgres needs dsn", RoleStorage, func(c *Config) { c.MetadataBackend = "postgres" }, "POSTGRES_DSN"},
		{"mysql needs dsn", RoleStorage, func(c *Config) { c.MetadataBackend = "mysql" }, "MYSQL_DSN"},
		{"redis index needs host", RoleStorage, func(c *Config) { c.HashIndexBackend = "redis" }, "REDIS_HOST"},
		{"batch workers", RoleAnalysis, func(c *Config) { c.MaxConcurrentBatch = 0 }, "MAX_CONCURRENT_BATCH"},
		{"gateway upload cap", RoleGateway, func(c *Config) { c.GatewayMaxUploadBytes = 0 }, "GATEWAY_MAX_UPLOAD_BYTES"},
		{"rate limit", RoleGateway, func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT_RPS"},
		{"unknown role", Role("printer"), func(c *Config) {}, "unknown role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := Load()
			tt.mutate(cfg)
			err := cfg.Validate(tt.role)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_PORT", "9001")
	t.Setenv("ALLOW_PDF", "true")
	t.Setenv("CACHE_TTL", "1m")

	cfg, _ := Load()
	if cfg.StoragePort != "9001" || !cfg.AllowPDF || cfg.CacheTTL != time.Minute {
		t.Fatalf("unexpected config: port=%s pdf=%v ttl=%v", cfg.StoragePort, cfg.AllowPDF, cfg.CacheTTL)
	}
}
