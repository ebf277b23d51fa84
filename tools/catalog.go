package tools

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/doxsearch/mcp-server/internal/config"
	"github.com/doxsearch/mcp-server/internal/indexing"
	"github.com/doxsearch/mcp-server/internal/lookup"
	"github.com/doxsearch/mcp-server/internal/searchdata"
)

const (
	searchDir        = "search"
	indexPointerFile = "search/index.current" // Names the active index directory
	indexVersionFile = searchDir + "/" + indexing.VersionFile
	indexFingerprint = searchDir + "/" + indexing.FingerprintFile // Shard content the index was built from
)

// Shard sources
const (
	sourceLocal    = "local"
	sourceEmbedded = "embedded"
	sourceRemote   = "remote"
)

var (
	dataDir  = filepath.Join(".", "data")
	settings = config.Config{
		DataDir:    dataDir,
		CacheSize:  config.DefaultCacheSize,
		RefreshTTL: config.DefaultRefreshTTL,
	}
)

// Configure sets the data directory and refresh settings. Call before
// RegisterSymbolSearchTools.
func Configure(cfg config.Config) {
	settings = cfg
	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
}

// catalog is one immutable generation of search data: the parsed shards,
// the lookup table built from them and the full-text index over their targets
type catalog struct {
	index     Index
	indexPath string
	table     *lookup.Table
	shards    *indexing.ShardSet
	source    string
	findings  int
	builtAt   time.Time
}

func (c *catalog) Close() error {
	if c.index == nil {
		return nil
	}
	return c.index.Close()
}

// catalogHolder manages concurrent access to the current catalog
type catalogHolder struct {
	// current is read lock-free by searches
	current atomic.Pointer[catalog]

	// refreshMu serializes rebuilds, never taken by searches
	refreshMu sync.Mutex

	// wg tracks in-flight searches so a replaced catalog is closed only once they finish
	wg sync.WaitGroup

	// closing tracks background closes of replaced catalogs
	closing sync.WaitGroup
}

var catalogMgr = &catalogHolder{}

// acquire returns the current catalog (nil if none) and a release func.
// The catalog stays open until release is called.
func (h *catalogHolder) acquire() (*catalog, func()) {
	h.wg.Add(1)
	return h.current.Load(), h.wg.Done
}

// swap installs c and, once in-flight searches have drained, closes the
// previous catalog and deletes its index directory
func (h *catalogHolder) swap(c *catalog) {
	old := h.current.Swap(c)
	if old == nil {
		return
	}

	h.closing.Add(1)
	go func() {
		defer h.closing.Done()
		waitStart := time.Now()
		h.wg.Wait()
		if err := old.Close(); err != nil {
			log.Printf("Warning: Error closing previous index: %v", err)
			return
		}
		log.Printf("✓ Previous index closed (waited %v for in-flight searches)", time.Since(waitStart).Round(time.Millisecond))

		if old.indexPath != "" && old.indexPath != c.indexPath {
			if err := os.RemoveAll(old.indexPath); err != nil {
				log.Printf("Warning: Could not remove previous index %s: %v", old.indexPath, err)
			}
		}
	}()
}

// buildCatalog builds the lookup table for set and opens or rebuilds the
// full-text index. With reuseIndex an existing on-disk index of the current
// schema version and matching size is opened instead of rebuilt.
func buildCatalog(set *indexing.ShardSet, source string, reuseIndex bool) (*catalog, error) {
	startTime := time.Now()

	// Validation findings are logged, not fatal
	findings := 0
	for _, shard := range set.Shards {
		for _, p := range searchdata.Validate(shard, set.Sections) {
			if p.Severity == searchdata.SeverityError {
				log.Printf("Warning: %s", p)
			}
			findings++
		}
	}

	// Build lookup table
	table, err := lookup.Build(set.Shards, lookup.WithCacheSize(settings.CacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup table: %w", err)
	}
	stats := table.Stats()
	log.Printf("✓ Lookup table built: %d shards, %d keys, %d targets (%d validation findings)",
		stats.Shards, stats.Keys, stats.Targets, findings)

	// Build documents and their fingerprint
	docs := indexing.BuildDocuments(set.Shards, settings.BaseURL)
	fingerprint, err := indexing.Fingerprint(set.Shards, settings.BaseURL)
	if err != nil {
		return nil, err
	}

	// Reuse the on-disk index when it matches, otherwise rebuild
	var index Index
	var indexPath string
	if reuseIndex {
		index, indexPath = openExistingIndex(len(docs), fingerprint)
	}
	if index == nil {
		index, indexPath, err = rebuildIndex(docs, fingerprint)
		if err != nil {
			return nil, err
		}
	}

	log.Printf("✓ Catalog ready (%s shards) in %v", source, time.Since(startTime).Round(time.Millisecond))
	return &catalog{
		index:     index,
		indexPath: indexPath,
		table:     table,
		shards:    set,
		source:    source,
		findings:  findings,
		builtAt:   time.Now(),
	}, nil
}

// openExistingIndex opens the active on-disk index if it has the current
// schema version, was built from shards with the given fingerprint and holds
// wantDocs documents. Stale or corrupted indexes are removed.
func openExistingIndex(wantDocs int, fingerprint string) (Index, string) {
	indexPath, ok := activeIndexPath()
	if !ok {
		return nil, ""
	}

	// Check schema version
	if version := getIndexVersion(); version != indexing.IndexSchemaVersion {
		log.Printf("Index schema version mismatch (have: v%d, want: v%d), invalidating old index...",
			version, indexing.IndexSchemaVersion)
		removeIndex(indexPath)
		return nil, ""
	}

	// Check the shards have not changed since the index was built
	if have := getIndexFingerprint(); have != fingerprint {
		log.Printf("Shards changed since the index was built, invalidating old index...")
		removeIndex(indexPath)
		return nil, ""
	}

	// Open and verify document count
	openStart := time.Now()
	index, err := openIndex(indexPath)
	if err != nil {
		log.Printf("Warning: Local index corrupted (open failed in %v), removing...", time.Since(openStart).Round(time.Millisecond))
		removeIndex(indexPath)
		return nil, ""
	}

	count, err := index.DocCount()
	if err != nil || int(count) != wantDocs {
		log.Printf("Local index holds %d documents but shards have %d targets, rebuilding...", count, wantDocs)
		index.Close()
		removeIndex(indexPath)
		return nil, ""
	}

	log.Printf("✓ Opened local index v%d (%d docs) in %v", indexing.IndexSchemaVersion, count, time.Since(openStart).Round(time.Millisecond))
	return index, indexPath
}

// rebuildIndex writes docs into a new index directory, points the index
// pointer file at it and opens it. Each build gets its own directory so a
// previous index can stay open for in-flight searches.
func rebuildIndex(docs []indexing.SymbolDoc, fingerprint string) (Index, string, error) {
	startTime := time.Now()
	indexPath := filepath.Join(dataDir, searchDir, fmt.Sprintf("index-%d", time.Now().UnixNano()))
	tempIndexPath := indexPath + ".tmp"

	if err := os.MkdirAll(filepath.Dir(tempIndexPath), 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create index directory: %w", err)
	}

	// Build in a temp location
	log.Printf("Indexing %d symbol targets in temp location...", len(docs))
	err := indexing.BuildIndex(tempIndexPath, docs, func(done, total int) {
		if done%(indexing.BatchSize*10) == 0 {
			log.Printf("Indexed %d/%d targets...", done, total)
		}
	})
	if err != nil {
		return nil, "", fmt.Errorf("indexing failed: %w", err)
	}

	// Move into place and open
	if err := os.Rename(tempIndexPath, indexPath); err != nil {
		os.RemoveAll(tempIndexPath)
		return nil, "", fmt.Errorf("failed to rename temp index: %w", err)
	}

	index, err := openIndex(indexPath)
	if err != nil {
		os.RemoveAll(indexPath)
		return nil, "", err
	}

	// Point at the new index, then record what it was built from
	if err := writeIndexPointer(indexPath); err != nil {
		index.Close()
		os.RemoveAll(indexPath)
		return nil, "", fmt.Errorf("failed to record active index: %w", err)
	}
	if err := writeIndexVersion(); err != nil {
		log.Printf("Warning: Failed to write index version: %v", err)
	}
	if err := writeIndexFingerprint(fingerprint); err != nil {
		log.Printf("Warning: Failed to write index fingerprint: %v", err)
	}

	log.Printf("✓ Indexed %d targets in %v", len(docs), time.Since(startTime).Round(time.Millisecond))
	return index, indexPath, nil
}

// activeIndexPath returns the index directory named by the pointer file
func activeIndexPath() (string, bool) {
	data, err := os.ReadFile(filepath.Join(dataDir, indexPointerFile))
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	if name == "" || name != filepath.Base(name) {
		return "", false
	}
	indexPath := filepath.Join(dataDir, searchDir, name)
	if info, err := os.Stat(indexPath); err != nil || !info.IsDir() {
		return "", false
	}
	return indexPath, true
}

// writeIndexPointer atomically replaces the pointer file
func writeIndexPointer(indexPath string) error {
	pointerPath := filepath.Join(dataDir, indexPointerFile)
	tmp := pointerPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(filepath.Base(indexPath)), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, pointerPath)
}

func removeIndex(indexPath string) {
	os.RemoveAll(indexPath)
	os.Remove(filepath.Join(dataDir, indexPointerFile))
	os.Remove(filepath.Join(dataDir, indexVersionFile))
	os.Remove(filepath.Join(dataDir, indexFingerprint))
}

// cleanIndexLeftovers removes index directories other than keep, including
// temp directories left by an interrupted build. Call only while no other
// catalog is open.
func cleanIndexLeftovers(keep string) {
	entries, err := os.ReadDir(filepath.Join(dataDir, searchDir))
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "index-") {
			continue
		}
		path := filepath.Join(dataDir, searchDir, entry.Name())
		if path == keep {
			continue
		}
		log.Printf("Removing leftover index %s", entry.Name())
		os.RemoveAll(path)
	}
}

// getIndexVersion reads the on-disk index schema version, 0 when absent
func getIndexVersion() int {
	data, err := os.ReadFile(filepath.Join(dataDir, indexVersionFile))
	if err != nil {
		return 0
	}

	version := 0
	fmt.Sscanf(string(data), "%d", &version)
	return version
}

func writeIndexVersion() error {
	versionPath := filepath.Join(dataDir, indexVersionFile)
	if err := os.MkdirAll(filepath.Dir(versionPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(versionPath, []byte(fmt.Sprintf("%d", indexing.IndexSchemaVersion)), 0644)
}

// getIndexFingerprint reads the fingerprint of the shards behind the on-disk index
func getIndexFingerprint() string {
	data, err := os.ReadFile(filepath.Join(dataDir, indexFingerprint))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func writeIndexFingerprint(fingerprint string) error {
	return os.WriteFile(filepath.Join(dataDir, indexFingerprint), []byte(fingerprint), 0644)
}
