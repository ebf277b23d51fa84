// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvDataDir    = "DOXSEARCH_DATA_DIR"
	EnvShardsURL  = "DOXSEARCH_SHARDS_URL"
	EnvBaseURL    = "DOXSEARCH_BASE_URL"
	EnvCacheSize  = "DOXSEARCH_CACHE_SIZE"
	EnvRefreshTTL = "DOXSEARCH_REFRESH_TTL"
	EnvWatch      = "DOXSEARCH_WATCH"
)

const (
	DefaultCacheSize  = 256
	DefaultRefreshTTL = 7 * 24 * time.Hour // 7 days

	homeDirName = ".doxsearch"
)

// Subdirectories created under the data directory
var dataSubdirs = []string{"search", "shards"}

// Config holds the runtime settings
type Config struct {
	DataDir    string        // Index, lock and downloaded shards live here
	ShardsURL  string        // Remote "search/" directory to refresh shards from
	BaseURL    string        // Documentation root used to make target URLs absolute
	CacheSize  int           // Lookup result cache entries, 0 disables
	RefreshTTL time.Duration // Age after which downloaded shards are considered stale
	Watch      bool          // Rebuild when the local shard directory changes
}

// Load reads .env (if present) and then the process environment
func Load() Config {
	// Missing .env is normal
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, falling back to defaults for unset or
// unparseable values
func FromEnv(getenv func(string) string) Config {
	cfg := Config{
		DataDir:    strings.TrimSpace(getenv(EnvDataDir)),
		ShardsURL:  strings.TrimSpace(getenv(EnvShardsURL)),
		BaseURL:    strings.TrimSpace(getenv(EnvBaseURL)),
		CacheSize:  DefaultCacheSize,
		RefreshTTL: DefaultRefreshTTL,
	}

	if v := strings.TrimSpace(getenv(EnvCacheSize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Printf("Warning: invalid %s=%q, using %d", EnvCacheSize, v, DefaultCacheSize)
		} else {
			cfg.CacheSize = n
		}
	}

	if v := strings.TrimSpace(getenv(EnvRefreshTTL)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Printf("Warning: invalid %s=%q, using %v", EnvRefreshTTL, v, DefaultRefreshTTL)
		} else {
			cfg.RefreshTTL = d
		}
	}

	if v := strings.TrimSpace(getenv(EnvWatch)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: invalid %s=%q, watch disabled", EnvWatch, v)
		} else {
			cfg.Watch = b
		}
	}

	if cfg.DataDir == "" {
		cfg.DataDir = ResolveDataDir()
	} else {
		ensureSubdirs(cfg.DataDir)
	}

	return cfg
}

// ShardDir is the local directory holding shard files
func (c Config) ShardDir() string {
	return filepath.Join(c.DataDir, "shards")
}

// ResolveDataDir picks the data directory: ~/.doxsearch, then ../data relative
// to the binary, then ./data
func ResolveDataDir() string {
	// Strategy 1: user home directory (standalone installation)
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userDataDir := filepath.Join(homeDir, homeDirName)

		if info, err := os.Stat(userDataDir); err == nil && info.IsDir() {
			log.Printf("✓ Data directory: %s (user home)", userDataDir)
			ensureSubdirs(userDataDir)
			return userDataDir
		}

		if err := os.MkdirAll(userDataDir, 0755); err == nil {
			log.Printf("✓ Data directory created: %s", userDataDir)
			ensureSubdirs(userDataDir)
			return userDataDir
		}

		log.Printf("Warning: Could not create user data directory at %s: %v", userDataDir, err)
	} else {
		log.Printf("Warning: Could not determine user home directory: %v", err)
	}

	// Strategy 2: relative to executable (bin/doxsearch-mcp-server next to data/)
	execPath, err := os.Executable()
	if err == nil {
		relativeDataDir := filepath.Join(filepath.Dir(execPath), "..", "data")
		if info, err := os.Stat(relativeDataDir); err == nil && info.IsDir() {
			dataDir, _ := filepath.Abs(relativeDataDir)
			log.Printf("✓ Data directory: %s (relative to binary)", dataDir)
			return dataDir
		}
	}

	// Strategy 3: current working directory
	dataDir := filepath.Join(".", "data")
	log.Printf("⚠️  Data directory (fallback): %s", dataDir)
	ensureSubdirs(dataDir)
	return dataDir
}

func ensureSubdirs(dataDir string) {
	for _, sub := range dataSubdirs {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0755); err != nil {
			log.Printf("Warning: Could not create %s: %v", filepath.Join(dataDir, sub), err)
		}
	}
}
