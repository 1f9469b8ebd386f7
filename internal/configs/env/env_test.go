package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("TEXTSCAN_STR", "value")
	t.Setenv("TEXTSCAN_INT", "42")
	t.Setenv("TEXTSCAN_BAD_INT", "forty-two")
	t.Setenv("TEXTSCAN_FLOAT", "2.5")
	t.Setenv("TEXTSCAN_BOOL", "true")

	if got := GetEnv("TEXTSCAN_STR", "x"); got != "value" {
		t.Fatalf("GetEnv = %q", got)
	}
	if got := GetEnv("TEXTSCAN_UNSET", "x"); got != "x" {
		t.Fatalf("GetEnv default = %q", got)
	}
	if got := GetEnvInt("TEXTSCAN_INT", 1); got != 42 {
		t.Fatalf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("TEXTSCAN_BAD_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt with garbage = %d, want default", got)
	}
	if got := GetEnvInt64("TEXTSCAN_INT", 1); got != 42 {
		t.Fatalf("GetEnvInt64 = %d", got)
	}
	if got := GetEnvFloat("TEXTSCAN_FLOAT", 0); got != 2.5 {
		t.Fatalf("GetEnvFloat = %v", got)
	}
	if !GetEnvBool("TEXTSCAN_BOOL", false) {
		t.Fatal("GetEnvBool = false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"30s", 30 * time.Second},
		{"15", 15 * time.Second},
		{"soon", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEXTSCAN_DUR", tt.value)
		if got := GetEnvDuration("TEXTSCAN_DUR", time.Minute); got != tt.want {
			t.Errorf("GetEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("TEXTSCAN_FROM_FILE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TEXTSCAN_FROM_FILE") })

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("TEXTSCAN_FROM_FILE"); got != "loaded" {
		t.Fatalf("TEXTSCAN_FROM_FILE = %q", got)
	}
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
