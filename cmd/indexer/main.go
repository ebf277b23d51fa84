package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/doxsearch/mcp-server/internal/config"
	"github.com/doxsearch/mcp-server/internal/indexing"
	"github.com/doxsearch/mcp-server/internal/searchdata"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <shard-dir> <index-dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s html/search data/search/index\n", os.Args[0])
		os.Exit(1)
	}

	shardDir := os.Args[1]
	indexDir := os.Args[2]
	baseURL := config.Load().BaseURL

	log.Printf("Doxygen Symbol Indexer v%d", indexing.IndexSchemaVersion)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Step 1: Load shards
	log.Printf("Loading shards: %s", shardDir)
	set, err := indexing.LoadShardDir(shardDir)
	if err != nil {
		log.Fatalf("Failed to load shards: %v", err)
	}
	if len(set.Shards) == 0 {
		log.Fatalf("No shards found in %s", shardDir)
	}

	entries := 0
	for _, shard := range set.Shards {
		entries += len(shard.Entries)
	}
	log.Printf("✓ Loaded %d shards (%d entries)", len(set.Shards), entries)

	// Step 2: Validate
	var problems []searchdata.Problem
	for _, shard := range set.Shards {
		problems = append(problems, searchdata.Validate(shard, set.Sections)...)
	}
	warnings := 0
	for _, p := range problems {
		if p.Severity == searchdata.SeverityError {
			log.Printf("  %s", p)
		} else {
			warnings++
		}
	}
	if searchdata.HasErrors(problems) {
		log.Fatalf("Validation failed: %d findings", len(problems))
	}
	if warnings > 0 {
		log.Printf("Warning: %d validation warnings (duplicate keys are expected)", warnings)
	}

	// Step 3: Build documents
	docs := indexing.BuildDocuments(set.Shards, baseURL)
	log.Printf("✓ Built %d documents", len(docs))

	// Step 4: Remove existing index
	if err := os.RemoveAll(indexDir); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove old index: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(indexDir), 0755); err != nil {
		log.Fatalf("Failed to create index directory: %v", err)
	}

	// Step 5: Index in batches
	log.Printf("Creating search index: %s", indexDir)
	err = indexing.BuildIndex(indexDir, docs, func(done, total int) {
		log.Printf("  Indexed %d/%d documents...", done, total)
	})
	if err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}
	log.Printf("✓ Indexed %d documents successfully", len(docs))

	// Step 6: Write version and fingerprint files
	versionFile := filepath.Join(filepath.Dir(indexDir), indexing.VersionFile)
	if err := os.WriteFile(versionFile, []byte(strconv.Itoa(indexing.IndexSchemaVersion)), 0644); err != nil {
		log.Printf("Warning: Failed to write version file: %v", err)
	} else {
		log.Printf("✓ Index schema version: v%d", indexing.IndexSchemaVersion)
	}

	fingerprint, err := indexing.Fingerprint(set.Shards, baseURL)
	if err != nil {
		log.Fatalf("Failed to fingerprint shards: %v", err)
	}
	fingerprintFile := filepath.Join(filepath.Dir(indexDir), indexing.FingerprintFile)
	if err := os.WriteFile(fingerprintFile, []byte(fingerprint), 0644); err != nil {
		log.Printf("Warning: Failed to write fingerprint file: %v", err)
	}

	// The server opens whichever index directory index.current names
	pointerFile := filepath.Join(filepath.Dir(indexDir), "index.current")
	if err := os.WriteFile(pointerFile, []byte(filepath.Base(indexDir)), 0644); err != nil {
		log.Printf("Warning: Failed to write index pointer: %v", err)
	}

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✓ Indexing complete!")
	log.Printf("")
	log.Printf("Index details:")
	log.Printf("  Location:  %s", indexDir)
	log.Printf("  Shards:    %d", len(set.Shards))
	log.Printf("  Entries:   %d", entries)
	log.Printf("  Documents: %d", len(docs))
	if baseURL != "" {
		log.Printf("  Base URL:  %s", baseURL)
	}
}
