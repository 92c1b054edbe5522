package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/copysmith/internal/config"
)

func TestGenerateRandomString(t *testing.T) {
	lengths := []int{8, 16, 32, 64}

	for _, length := range lengths {
		result := generateRandomString(length)
		if len(result) != length {
			t.Errorf("generateRandomString(%d) returned string of length %d", length, len(result))
		}
	}

	s1 := generateRandomString(32)
	s2 := generateRandomString(32)
	if s1 == s2 {
		t.Error("generateRandomString should generate unique strings")
	}
}

func TestGenerateConfigLoads(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		generation string
	}{
		{"fixture", "fixture", ""},
		{"live ollama", "live", "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			initSource = tt.source
			initGeneration = tt.generation
			initDataDir = dir
			initJWTSecret = generateRandomString(64)

			content := generateConfig()
			if !strings.Contains(content, `mode: "`+tt.source+`"`) {
				t.Errorf("config does not contain source mode:\n%s", content)
			}

			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			// ollama needs no key and direct extraction is not used, so only
			// the tavily key has to come from the environment
			t.Setenv("TAVILY_API_KEY", "tvly-test")

			cfg, err := config.Load(path)
			if err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
			if cfg.Auth.JWTSecret != initJWTSecret {
				t.Error("jwt secret not preserved")
			}
			if cfg.Database.Path != filepath.Join(dir, "copysmith.db") {
				t.Errorf("Database.Path = %s", cfg.Database.Path)
			}
		})
	}
}

func TestLimitString(t *testing.T) {
	if got := limitString(0); got != "unlimited" {
		t.Errorf("limitString(0) = %q", got)
	}
	if got := limitString(20); got != "20" {
		t.Errorf("limitString(20) = %q", got)
	}
}
