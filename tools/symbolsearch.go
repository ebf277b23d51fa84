package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/doxsearch/mcp-server/internal/indexing"
	"github.com/doxsearch/mcp-server/internal/lookup"
	"github.com/doxsearch/mcp-server/internal/searchdata"
)

const (
	defaultSearchResults = 10
	maxSearchResults     = 50
	defaultLookupLimit   = 20
	maxLookupLimit       = 200
)

var activeWatcher *shardWatcher

// SymbolHit is a full-text search result
type SymbolHit struct {
	Symbol indexing.SymbolDoc `json:"symbol"`
	Score  float64            `json:"score"`
}

// SearchSymbolsInput defines input for search_symbols tool
type SearchSymbolsInput struct {
	Query      string `json:"query" jsonschema:"Free-text query over symbol names, scopes and keywords"`
	Kind       string `json:"kind,omitempty" jsonschema:"Restrict to a symbol kind: class, struct, union, namespace, interface, file, group, dir, page or member (optional)"`
	Category   string `json:"category,omitempty" jsonschema:"Restrict to a search category such as all or functions (optional)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10)"`
}

// SearchSymbolsOutput defines output for search_symbols tool
type SearchSymbolsOutput struct {
	Results   []SymbolHit `json:"results"`
	Query     string      `json:"query"`
	TotalHits int         `json:"total_hits"`
}

// LookupSymbolInput defines input for lookup_symbol tool
type LookupSymbolInput struct {
	Term  string `json:"term" jsonschema:"Symbol name or name fragment, matched like the documentation search box"`
	Mode  string `json:"mode,omitempty" jsonschema:"auto (exact, then prefix, then substring), exact, prefix or substring (optional, defaults to auto)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of keys returned (optional, defaults to 20)"`
}

// LookupSymbolOutput defines output for lookup_symbol tool
type LookupSymbolOutput struct {
	Term    string          `json:"term"`
	Key     string          `json:"key"` // Encoded form of term
	Mode    string          `json:"mode"`
	Results []lookup.Result `json:"results"`
	Total   int             `json:"total"`
}

// ListShardsInput defines input for list_shards tool
type ListShardsInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only list shards of this category (optional)"`
}

// ShardSummary describes one loaded shard
type ShardSummary struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	FirstChar string `json:"first_char"`
	Entries   int    `json:"entries"`
	Targets   int    `json:"targets"`
}

// ListShardsOutput defines output for list_shards tool
type ListShardsOutput struct {
	Shards   []ShardSummary       `json:"shards"`
	Sections []searchdata.Section `json:"sections,omitempty"`
	Stats    lookup.Stats         `json:"stats"`
	Source   string               `json:"source"`
	BuiltAt  time.Time            `json:"built_at"`
}

// ValidateShardsInput defines input for validate_shards tool
type ValidateShardsInput struct {
	Shard  string `json:"shard,omitempty" jsonschema:"Only validate the shard with this name, e.g. all_10 (optional)"`
	Schema bool   `json:"schema,omitempty" jsonschema:"Also validate each shard against the JSON schema (optional)"`
}

// ValidateShardsOutput defines output for validate_shards tool
type ValidateShardsOutput struct {
	Valid         bool                 `json:"valid"`
	ShardsChecked int                  `json:"shards_checked"`
	Errors        int                  `json:"errors"`
	Warnings      int                  `json:"warnings"`
	Problems      []searchdata.Problem `json:"problems"`
}

// RefreshSymbolIndexInput defines input for refresh_symbol_index tool
type RefreshSymbolIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Re-download shards even if the local copy is fresh (optional, defaults to false)"`
}

// RefreshSymbolIndexOutput defines output for refresh_symbol_index tool
type RefreshSymbolIndexOutput struct {
	Updated     bool      `json:"updated"`
	Source      string    `json:"source"`
	LastUpdate  time.Time `json:"last_update"`
	Downloaded  int       `json:"downloaded,omitempty"`
	Keys        int       `json:"keys"`
	DocsIndexed int       `json:"docs_indexed"`
	Message     string    `json:"message"`
}

// InitializeSymbolSearch loads the shards and opens the search catalog.
// Priority: local shard directory > embedded sample shards (extracted to the
// local directory on first run).
func InitializeSymbolSearch() error {
	startTime := time.Now()
	log.Printf("Initializing symbol search...")

	catalogMgr.refreshMu.Lock()
	defer catalogMgr.refreshMu.Unlock()

	// Already initialized by a concurrent caller
	if catalogMgr.current.Load() != nil {
		return nil
	}

	// Acquire lock to prevent concurrent index operations between processes
	log.Printf("Acquiring index lock...")
	lockStart := time.Now()
	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	log.Printf("Lock acquired in %v", time.Since(lockStart).Round(time.Millisecond))

	// Decide where the shards come from
	source := sourceLocal
	if _, ok := lastUpdate(); ok && settings.ShardsURL != "" {
		source = sourceRemote
	}
	if !hasLocalShards() {
		log.Printf("No local shards found, extracting embedded sample shards...")
		if err := extractEmbeddedShards(); err != nil {
			return fmt.Errorf("failed to extract embedded shards: %w", err)
		}
		source = sourceEmbedded
	}

	// Load shards and open (or build) the index
	set, err := indexing.LoadShardDir(shardDir())
	if err != nil {
		return fmt.Errorf("failed to load shards: %w", err)
	}

	c, err := buildCatalog(set, source, true)
	if err != nil {
		return err
	}
	catalogMgr.swap(c)
	cleanIndexLeftovers(c.indexPath)

	log.Printf("✓ Symbol search initialized (%d keys, %s shards) in %v",
		c.table.Len(), source, time.Since(startTime).Round(time.Millisecond))

	if settings.ShardsURL != "" && needsRefresh() {
		log.Printf("ℹ️  Shards are older than %v. Use refresh_symbol_index to download the latest.", settings.RefreshTTL)
	}
	return nil
}

// startWatching rebuilds the catalog whenever the local shard directory changes
func startWatching() error {
	if settings.ShardsURL != "" {
		log.Printf("Warning: shard directory watch ignored while a shards URL is configured")
		return nil
	}

	w, err := newShardWatcher(shardDir(), watchDebounce, func() error {
		_, err := refreshSymbolIndex(context.Background(), true)
		return err
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.watcher.Close()
		return err
	}
	activeWatcher = w
	return nil
}

// currentCatalog returns the catalog, initializing it on first use.
// The caller must call release.
func currentCatalog() (*catalog, func(), error) {
	c, release := catalogMgr.acquire()
	if c != nil {
		return c, release, nil
	}
	release()

	log.Printf("Symbol index not initialized, initializing now...")
	if err := InitializeSymbolSearch(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize symbol index: %w", err)
	}

	c, release = catalogMgr.acquire()
	if c == nil {
		release()
		return nil, nil, errors.New("symbol index still nil after initialization")
	}
	return c, release, nil
}

// buildSymbolQuery matches the query against names, keywords, scopes and
// breadcrumbs, with a boosted prefix match on the encoded key
func buildSymbolQuery(input SearchSymbolsInput) query.Query {
	text := strings.TrimSpace(input.Query)

	name := bleve.NewMatchQuery(text)
	name.SetField("name")
	name.SetBoost(3)

	keywords := bleve.NewMatchQuery(text)
	keywords.SetField("keywords")

	scope := bleve.NewMatchQuery(text)
	scope.SetField("scope")

	breadcrumb := bleve.NewMatchQuery(text)
	breadcrumb.SetField("breadcrumb")

	key := bleve.NewPrefixQuery(searchdata.EncodeKey(text))
	key.SetField("key")
	key.SetBoost(5)

	var q query.Query = bleve.NewDisjunctionQuery(name, keywords, scope, breadcrumb, key)

	var filters []query.Query
	if kind := strings.ToLower(strings.TrimSpace(input.Kind)); kind != "" {
		term := bleve.NewTermQuery(kind)
		term.SetField("kind")
		filters = append(filters, term)
	}
	if category := strings.TrimSpace(input.Category); category != "" {
		term := bleve.NewTermQuery(category)
		term.SetField("category")
		filters = append(filters, term)
	}
	if len(filters) > 0 {
		q = bleve.NewConjunctionQuery(append([]query.Query{q}, filters...)...)
	}
	return q
}

// symbolFromHit rebuilds a SymbolDoc from the stored fields of a hit
func symbolFromHit(hit *search.DocumentMatch) indexing.SymbolDoc {
	str := func(field string) string {
		s, _ := hit.Fields[field].(string)
		return s
	}

	doc := indexing.SymbolDoc{
		ID:         hit.ID,
		Key:        str("key"),
		Name:       str("name"),
		Kind:       str("kind"),
		Scope:      str("scope"),
		Compound:   str("compound"),
		Breadcrumb: str("breadcrumb"),
		Page:       str("page"),
		Anchor:     str("anchor"),
		URL:        str("url"),
		Shard:      str("shard"),
		Category:   str("category"),
	}

	// Single-element arrays come back as a plain string
	switch keywords := hit.Fields["keywords"].(type) {
	case []interface{}:
		doc.Keywords = make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if s, ok := kw.(string); ok {
				doc.Keywords = append(doc.Keywords, s)
			}
		}
	case string:
		doc.Keywords = []string{keywords}
	}
	return doc
}

// SearchSymbols runs a full-text search over all symbol targets
func SearchSymbols(ctx context.Context, req *mcp.CallToolRequest, input SearchSymbolsInput) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchSymbolsOutput{}, errors.New("query is required")
	}

	c, release, err := currentCatalog()
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	defer release()

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	searchReq := bleve.NewSearchRequest(buildSymbolQuery(input))
	searchReq.Size = maxResults
	searchReq.Fields = []string{"*"}

	searchResults, err := c.index.Search(searchReq)
	if err != nil {
		return nil, SearchSymbolsOutput{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SymbolHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		results = append(results, SymbolHit{
			Symbol: symbolFromHit(hit),
			Score:  hit.Score,
		})
	}

	return nil, SearchSymbolsOutput{
		Results:   results,
		Query:     input.Query,
		TotalHits: int(searchResults.Total),
	}, nil
}

// LookupSymbol resolves a term against the lookup table
func LookupSymbol(ctx context.Context, req *mcp.CallToolRequest, input LookupSymbolInput) (*mcp.CallToolResult, LookupSymbolOutput, error) {
	mode, err := lookup.ParseMode(input.Mode)
	if err != nil {
		return nil, LookupSymbolOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultLookupLimit
	}
	if limit > maxLookupLimit {
		limit = maxLookupLimit
	}

	c, release, err := currentCatalog()
	if err != nil {
		return nil, LookupSymbolOutput{}, err
	}
	defer release()

	results, err := c.table.Search(ctx, input.Term, mode, limit)
	if err != nil {
		return nil, LookupSymbolOutput{}, fmt.Errorf("lookup failed: %w", err)
	}
	if results == nil {
		results = []lookup.Result{}
	}

	return nil, LookupSymbolOutput{
		Term:    input.Term,
		Key:     searchdata.EncodeKey(input.Term),
		Mode:    string(mode),
		Results: results,
		Total:   len(results),
	}, nil
}

// ListShards describes the loaded shards and section table
func ListShards(ctx context.Context, req *mcp.CallToolRequest, input ListShardsInput) (*mcp.CallToolResult, ListShardsOutput, error) {
	c, release, err := currentCatalog()
	if err != nil {
		return nil, ListShardsOutput{}, err
	}
	defer release()

	output := ListShardsOutput{
		Shards:   []ShardSummary{},
		Sections: c.shards.Sections,
		Stats:    c.table.Stats(),
		Source:   c.source,
		BuiltAt:  c.builtAt,
	}

	for _, shard := range c.shards.Shards {
		if input.Category != "" && shard.Category != input.Category {
			continue
		}
		summary := ShardSummary{
			Name:     shard.Name,
			Category: shard.Category,
			Entries:  len(shard.Entries),
			Targets:  shard.TargetCount(),
		}
		if r := shard.FirstChar(); r != 0 {
			summary.FirstChar = string(r)
		}
		output.Shards = append(output.Shards, summary)
	}
	sort.Slice(output.Shards, func(i, j int) bool { return output.Shards[i].Name < output.Shards[j].Name })

	return nil, output, nil
}

// ValidateShards checks the loaded shards for structural problems
func ValidateShards(ctx context.Context, req *mcp.CallToolRequest, input ValidateShardsInput) (*mcp.CallToolResult, ValidateShardsOutput, error) {
	c, release, err := currentCatalog()
	if err != nil {
		return nil, ValidateShardsOutput{}, err
	}
	defer release()

	output := ValidateShardsOutput{Problems: []searchdata.Problem{}}
	for _, shard := range c.shards.Shards {
		if input.Shard != "" && shard.Name != input.Shard {
			continue
		}
		output.ShardsChecked++
		output.Problems = append(output.Problems, searchdata.Validate(shard, c.shards.Sections)...)

		if input.Schema {
			problems, err := searchdata.ValidateJSON(shard)
			if err != nil {
				return nil, ValidateShardsOutput{}, fmt.Errorf("schema validation failed: %w", err)
			}
			output.Problems = append(output.Problems, problems...)
		}
	}

	if input.Shard != "" && output.ShardsChecked == 0 {
		return nil, ValidateShardsOutput{}, fmt.Errorf("shard %q not loaded", input.Shard)
	}

	for _, p := range output.Problems {
		if p.Severity == searchdata.SeverityError {
			output.Errors++
		} else {
			output.Warnings++
		}
	}
	output.Valid = output.Errors == 0

	return nil, output, nil
}

// RefreshSymbolIndex reloads shards and rebuilds the search catalog
func RefreshSymbolIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshSymbolIndexInput) (*mcp.CallToolResult, RefreshSymbolIndexOutput, error) {
	result, err := refreshSymbolIndex(ctx, input.Force)
	if err != nil {
		return nil, RefreshSymbolIndexOutput{}, fmt.Errorf("refresh failed: %w", err)
	}

	output := RefreshSymbolIndexOutput{
		Updated:    result.Updated,
		Source:     result.Source,
		LastUpdate: result.LastUpdate,
		Downloaded: result.Downloaded,
		Message:    result.Message,
	}

	c, release := catalogMgr.acquire()
	defer release()
	if c != nil {
		output.Keys = c.table.Len()
		count, _ := c.index.DocCount()
		output.DocsIndexed = int(count)
	}

	return nil, output, nil
}

// RegisterSymbolSearchTools initializes the catalog and registers the symbol search tools
func RegisterSymbolSearchTools(server *mcp.Server) error {
	if err := InitializeSymbolSearch(); err != nil {
		log.Printf("Warning: Symbol search initialization failed: %v", err)
		log.Printf("Symbol search will attempt to initialize on first use")
	} else if settings.Watch {
		if err := startWatching(); err != nil {
			log.Printf("Warning: Could not watch shard directory: %v", err)
		}
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_symbols",
			Description: "Full-text search over documented symbols (names, scopes, keywords). Returns ranked targets with page, anchor and URL.",
		},
		SearchSymbols,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "lookup_symbol",
			Description: "Resolve a symbol name the way the documentation search box does: exact key, then prefix, then substring matches, each with all of its targets.",
		},
		LookupSymbol,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_shards",
			Description: "List the loaded search shards, the section table and entry/target counts per category.",
		},
		ListShards,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_shards",
			Description: "Check the loaded search shards for empty keys or labels, missing targets, invalid anchors, misplaced and duplicate keys; optionally validate against the JSON schema.",
		},
		ValidateShards,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_symbol_index",
			Description: "Reload search shards (download from the configured URL, or re-read the local shard directory) and rebuild the symbol index.",
		},
		RefreshSymbolIndex,
	)

	return nil
}

// CloseSymbolSearch stops the watcher, closes the catalog and releases the lock
func CloseSymbolSearch() error {
	var closeErr error

	if activeWatcher != nil {
		if err := activeWatcher.Close(); err != nil {
			log.Printf("Warning: Error stopping shard watcher: %v", err)
		}
		activeWatcher = nil
	}

	if c := catalogMgr.current.Swap(nil); c != nil {
		log.Printf("Waiting for in-flight searches to complete before closing...")
		catalogMgr.wg.Wait()

		closeErr = c.Close()
		if closeErr != nil {
			log.Printf("Error closing symbol index: %v", closeErr)
		} else {
			log.Printf("✓ Symbol index closed successfully")
		}
	}

	catalogMgr.closing.Wait()

	// Always attempt to release the lock, even if close failed
	if err := releaseLock(); err != nil {
		log.Printf("Error releasing lock: %v", err)
		if closeErr == nil {
			closeErr = err
		}
	}

	return closeErr
}
