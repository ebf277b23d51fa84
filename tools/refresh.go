package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/doxsearch/mcp-server/internal/indexing"
	"github.com/doxsearch/mcp-server/internal/searchdata"
)

const (
	shardDirName    = "shards"
	cacheMetaFile   = "search/cache.meta"
	downloadTimeout = 60 * time.Second
	maxShardSize    = 32 << 20
)

var httpClient = &http.Client{Timeout: downloadTimeout}

func shardDir() string {
	return filepath.Join(dataDir, shardDirName)
}

// hasLocalShards reports whether the local shard directory holds any shard file
func hasLocalShards() bool {
	entries, err := os.ReadDir(shardDir())
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if _, _, ok := searchdata.SplitShardName(entry.Name()); ok && filepath.Ext(entry.Name()) == ".js" {
			return true
		}
	}
	return false
}

// extractEmbeddedShards copies the bundled shards into the local shard directory
func extractEmbeddedShards() error {
	entries, err := defaultDataProvider.ReadDir(embeddedShardDir)
	if err != nil {
		return fmt.Errorf("failed to read embedded shards: %w", err)
	}

	dest := shardDir()
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	extracted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultDataProvider.ReadFile(path.Join(embeddedShardDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dest, entry.Name()), data, 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", entry.Name(), err)
		}
		extracted++
	}

	log.Printf("✓ Extracted %d embedded shard files to %s", extracted, dest)
	return nil
}

// needsRefresh reports whether downloaded shards are older than the refresh TTL
func needsRefresh() bool {
	info, err := os.Stat(filepath.Join(dataDir, cacheMetaFile))
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > settings.RefreshTTL
}

func lastUpdate() (time.Time, bool) {
	info, err := os.Stat(filepath.Join(dataDir, cacheMetaFile))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// downloadShards fetches searchdata.js from baseURL and every shard it lists
// into a temporary directory, then swaps it in as the local shard directory.
// Every file must parse before anything is replaced.
func downloadShards(ctx context.Context, baseURL string) (int, error) {
	log.Printf("Downloading search shards from %s", baseURL)

	// Fetch the section table first, it lists the shard files
	sectionsURL, err := url.JoinPath(baseURL, searchdata.SectionsFile)
	if err != nil {
		return 0, fmt.Errorf("invalid shards URL %q: %w", baseURL, err)
	}
	sectionsData, err := fetch(ctx, sectionsURL)
	if err != nil {
		return 0, err
	}
	sections, err := searchdata.ParseSections(bytes.NewReader(sectionsData))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", searchdata.SectionsFile, err)
	}

	// Download into a temp directory
	dest := shardDir()
	tempDir := dest + ".tmp"
	os.RemoveAll(tempDir)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create temp shard directory: %w", err)
	}

	fail := func(err error) (int, error) {
		os.RemoveAll(tempDir)
		return 0, err
	}

	if err := os.WriteFile(filepath.Join(tempDir, searchdata.SectionsFile), sectionsData, 0644); err != nil {
		return fail(fmt.Errorf("failed to write %s: %w", searchdata.SectionsFile, err))
	}

	files := sections.ShardFiles()
	for i, name := range files {
		shardURL, err := url.JoinPath(baseURL, name)
		if err != nil {
			return fail(err)
		}
		data, err := fetch(ctx, shardURL)
		if err != nil {
			return fail(err)
		}
		// Reject anything that does not parse as a shard
		if _, err := searchdata.ParseBytes(data); err != nil {
			return fail(fmt.Errorf("%s: %w", name, err))
		}
		if err := os.WriteFile(filepath.Join(tempDir, name), data, 0644); err != nil {
			return fail(fmt.Errorf("failed to write %s: %w", name, err))
		}
		if (i+1)%50 == 0 {
			log.Printf("Downloaded %d/%d shards...", i+1, len(files))
		}
	}

	// Replace the local shard directory
	if err := os.RemoveAll(dest); err != nil && !os.IsNotExist(err) {
		return fail(fmt.Errorf("failed to remove old shards: %w", err))
	}
	if err := os.Rename(tempDir, dest); err != nil {
		return fail(fmt.Errorf("failed to rename temp shard directory: %w", err))
	}

	// Update cache metadata
	metaPath := filepath.Join(dataDir, cacheMetaFile)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create meta directory: %w", err)
	}
	meta := fmt.Sprintf("last_update: %s\nsource: %s\nshards: %d\n", time.Now().Format(time.RFC3339), baseURL, len(files))
	if err := os.WriteFile(metaPath, []byte(meta), 0644); err != nil {
		return 0, fmt.Errorf("failed to write meta file: %w", err)
	}

	log.Printf("✓ Downloaded %d shards", len(files))
	return len(files), nil
}

func fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of %s failed with status: %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxShardSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	if len(data) > maxShardSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", rawURL, maxShardSize)
	}
	return data, nil
}

// refreshResult describes what a refresh did
type refreshResult struct {
	Updated    bool
	Source     string
	LastUpdate time.Time
	Downloaded int
	Message    string
}

// refreshSymbolIndex reloads shards and swaps in a new catalog.
// With a shards URL configured, shards are downloaded first unless they are
// younger than the refresh TTL and force is false. Without one, the local
// shard directory is reloaded.
func refreshSymbolIndex(ctx context.Context, force bool) (refreshResult, error) {
	startTime := time.Now()
	remote := settings.ShardsURL != ""

	// Fast path: downloaded shards are still fresh
	if remote && !force && !needsRefresh() {
		last, _ := lastUpdate()
		return refreshResult{
			Source:     sourceRemote,
			LastUpdate: last,
			Message:    fmt.Sprintf("Shards are fresh (last updated: %s)", last.Format(time.RFC3339)),
		}, nil
	}

	catalogMgr.refreshMu.Lock()
	defer catalogMgr.refreshMu.Unlock()

	// Another goroutine may have refreshed while we waited
	if remote && !force && !needsRefresh() {
		last, _ := lastUpdate()
		return refreshResult{Source: sourceRemote, LastUpdate: last, Message: "Shards were refreshed concurrently"}, nil
	}

	log.Printf("Starting symbol index refresh (force=%v, remote=%v)...", force, remote)

	// Released by CloseSymbolSearch on shutdown
	if err := acquireLock(); err != nil {
		return refreshResult{}, fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}

	// Fetch or locate shards
	result := refreshResult{Source: sourceLocal}
	if remote {
		n, err := downloadShards(ctx, settings.ShardsURL)
		if err != nil {
			return refreshResult{}, fmt.Errorf("download failed: %w", err)
		}
		result.Source = sourceRemote
		result.Downloaded = n
	} else if !hasLocalShards() {
		if err := extractEmbeddedShards(); err != nil {
			return refreshResult{}, err
		}
		result.Source = sourceEmbedded
	}

	// Rebuild and swap the catalog
	set, err := indexing.LoadShardDir(shardDir())
	if err != nil {
		return refreshResult{}, fmt.Errorf("failed to load shards: %w", err)
	}

	c, err := buildCatalog(set, result.Source, false)
	if err != nil {
		return refreshResult{}, err
	}
	// Old catalog is closed once in-flight searches finish
	catalogMgr.swap(c)

	result.Updated = true
	result.LastUpdate = c.builtAt
	result.Message = fmt.Sprintf("Symbol index refreshed from %s shards: %d keys, %d targets",
		result.Source, c.table.Len(), c.table.Stats().Targets)

	log.Printf("✓ Symbol index refresh completed in %v", time.Since(startTime).Round(time.Millisecond))
	return result, nil
}

