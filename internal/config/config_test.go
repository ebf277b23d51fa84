package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestFromEnv(t *testing.T) {
	dataDir := t.TempDir()

	tests := []struct {
		name     string
		env      map[string]string
		expected Config
	}{
		{
			name: "defaults",
			env:  map[string]string{EnvDataDir: dataDir},
			expected: Config{
				DataDir:    dataDir,
				CacheSize:  DefaultCacheSize,
				RefreshTTL: DefaultRefreshTTL,
			},
		},
		{
			name: "all set",
			env: map[string]string{
				EnvDataDir:    dataDir,
				EnvShardsURL:  "https://docs.example.org/html/search/",
				EnvBaseURL:    " https://docs.example.org/html/ ",
				EnvCacheSize:  "0",
				EnvRefreshTTL: "36h",
				EnvWatch:      "true",
			},
			expected: Config{
				DataDir:    dataDir,
				ShardsURL:  "https://docs.example.org/html/search/",
				BaseURL:    "https://docs.example.org/html/",
				CacheSize:  0,
				RefreshTTL: 36 * time.Hour,
				Watch:      true,
			},
		},
		{
			name: "invalid values fall back",
			env: map[string]string{
				EnvDataDir:    dataDir,
				EnvCacheSize:  "-4",
				EnvRefreshTTL: "weekly",
				EnvWatch:      "maybe",
			},
			expected: Config{
				DataDir:    dataDir,
				CacheSize:  DefaultCacheSize,
				RefreshTTL: DefaultRefreshTTL,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromEnv(envMap(tt.env))
			if got != tt.expected {
				t.Errorf("FromEnv() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestFromEnv_CreatesSubdirs(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested")

	cfg := FromEnv(envMap(map[string]string{EnvDataDir: dataDir}))

	for _, sub := range []string{"search", "shards"} {
		if info, err := os.Stat(filepath.Join(dataDir, sub)); err != nil || !info.IsDir() {
			t.Errorf("expected %s directory to exist: %v", sub, err)
		}
	}
	if cfg.ShardDir() != filepath.Join(dataDir, "shards") {
		t.Errorf("ShardDir() = %s", cfg.ShardDir())
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	content := "DOXSEARCH_DATA_DIR=" + dataDir + "\nDOXSEARCH_CACHE_SIZE=42\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	// Unset for the duration of the test; t.Setenv restores the original value
	for _, key := range []string{EnvDataDir, EnvCacheSize} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(dir)

	cfg := Load()
	if cfg.DataDir != dataDir {
		t.Errorf("DataDir = %s, want %s", cfg.DataDir, dataDir)
	}
	if cfg.CacheSize != 42 {
		t.Errorf("CacheSize = %d, want 42", cfg.CacheSize)
	}
}
