// Package lookup implements the in-memory symbol lookup table: a mapping
// from encoded search keys to their targets, queried by exact key, prefix
// or substring the way the documentation search box matches.
//
// A Table is immutable once built and safe for concurrent use.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/doxsearch/mcp-server/internal/searchdata"
)

// DefaultCacheSize is the number of query results kept by default
const DefaultCacheSize = 256

// scanCheckInterval is how often substring scans check for cancellation
const scanCheckInterval = 1000

// ErrEmptyTerm is returned when a search term encodes to an empty key
var ErrEmptyTerm = errors.New("empty search term")

// Mode selects how a term is matched against keys
type Mode string

const (
	ModeAuto      Mode = "auto"      // exact, then prefix, then substring
	ModeExact     Mode = "exact"     // whole key only
	ModePrefix    Mode = "prefix"    // keys starting with the term
	ModeSubstring Mode = "substring" // keys containing the term
)

// ParseMode converts a user-supplied mode, defaulting to ModeAuto
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeExact:
		return ModeExact, nil
	case ModePrefix:
		return ModePrefix, nil
	case ModeSubstring:
		return ModeSubstring, nil
	}
	return "", fmt.Errorf("unknown match mode %q (want auto, exact, prefix or substring)", s)
}

// Match records how a result matched the term
type Match int

const (
	MatchExact Match = iota
	MatchPrefix
	MatchSubstring
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	default:
		return "substring"
	}
}

// MarshalText serializes Match as its name
func (m Match) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Result is one matching key with all of its targets
type Result struct {
	Key        string              `json:"key"`
	Display    string              `json:"display"`
	Targets    []searchdata.Target `json:"targets"`
	Categories []string            `json:"categories"`
	Match      Match               `json:"match"`
}

// Stats summarizes the table contents
type Stats struct {
	Shards     int            `json:"shards"`
	Keys       int            `json:"keys"`
	Targets    int            `json:"targets"`
	ByCategory map[string]int `json:"by_category"` // Entries per category before merging
}

type record struct {
	display    string
	targets    []searchdata.Target
	categories []string
}

type cacheKey struct {
	mode  Mode
	term  string
	limit int
}

// Table is the immutable lookup structure
type Table struct {
	keys    []string // sorted, unique
	records map[string]*record
	stats   Stats
	cache   *lru.Cache[cacheKey, []Result]
}

// Option configures Build
type Option func(*options)

type options struct {
	cacheSize int
}

// WithCacheSize sets the result cache size; 0 disables caching
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// Build creates a table from shards.
// Entries sharing a key are merged; their targets are concatenated in shard
// order with duplicate URLs dropped, and the first display label wins.
func Build(shards []*searchdata.Shard, opts ...Option) (*Table, error) {
	o := options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Table{
		records: make(map[string]*record),
		stats: Stats{
			Shards:     len(shards),
			ByCategory: make(map[string]int),
		},
	}

	for _, shard := range shards {
		for _, entry := range shard.Entries {
			if entry.Key == "" {
				return nil, fmt.Errorf("shard %s: entry with empty key", shard.Name)
			}
			t.stats.ByCategory[shard.Category]++

			rec, ok := t.records[entry.Key]
			if !ok {
				rec = &record{display: entry.Display}
				t.records[entry.Key] = rec
				t.keys = append(t.keys, entry.Key)
			}
			rec.addCategory(shard.Category)
			for _, target := range entry.Targets {
				if rec.addTarget(target) {
					t.stats.Targets++
				}
			}
		}
	}

	sort.Strings(t.keys)
	t.stats.Keys = len(t.keys)

	if o.cacheSize > 0 {
		cache, err := lru.New[cacheKey, []Result](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		t.cache = cache
	}

	return t, nil
}

func (r *record) addTarget(target searchdata.Target) bool {
	for _, existing := range r.targets {
		if existing.URL == target.URL {
			return false
		}
	}
	r.targets = append(r.targets, target)
	return true
}

func (r *record) addCategory(category string) {
	if category == "" {
		return
	}
	for _, c := range r.categories {
		if c == category {
			return
		}
	}
	r.categories = append(r.categories, category)
}

// Len returns the number of distinct keys
func (t *Table) Len() int {
	return len(t.keys)
}

// Stats returns a copy of the table statistics
func (t *Table) Stats() Stats {
	s := t.stats
	s.ByCategory = make(map[string]int, len(t.stats.ByCategory))
	for k, v := range t.stats.ByCategory {
		s.ByCategory[k] = v
	}
	return s
}

// Exact returns the entry whose key equals the encoded term
func (t *Table) Exact(term string) (Result, bool) {
	key := searchdata.EncodeKey(term)
	rec, ok := t.records[key]
	if !ok {
		return Result{}, false
	}
	return t.result(key, rec, MatchExact), true
}

// Prefix returns entries whose key starts with the encoded term, in key order.
// limit <= 0 means no limit.
func (t *Table) Prefix(term string, limit int) []Result {
	prefix := searchdata.EncodeKey(term)
	if prefix == "" {
		return nil
	}
	return t.prefix(prefix, limit, "")
}

func (t *Table) prefix(prefix string, limit int, skip string) []Result {
	var results []Result
	for i := sort.SearchStrings(t.keys, prefix); i < len(t.keys); i++ {
		key := t.keys[i]
		if !strings.HasPrefix(key, prefix) {
			break
		}
		if key == skip {
			continue
		}
		match := MatchPrefix
		if key == prefix {
			match = MatchExact
		}
		results = append(results, t.result(key, t.records[key], match))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Substring returns entries whose key contains the encoded term, in key order.
// limit <= 0 means no limit.
func (t *Table) Substring(term string, limit int) []Result {
	results, _ := t.substring(context.Background(), searchdata.EncodeKey(term), limit, false)
	return results
}

func (t *Table) substring(ctx context.Context, needle string, limit int, skipPrefixed bool) ([]Result, error) {
	if needle == "" {
		return nil, nil
	}

	var results []Result
	for i, key := range t.keys {
		if i%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if skipPrefixed && strings.HasPrefix(key, needle) {
			continue
		}
		if !strings.Contains(key, needle) {
			continue
		}

		match := MatchSubstring
		switch {
		case key == needle:
			match = MatchExact
		case strings.HasPrefix(key, needle):
			match = MatchPrefix
		}
		results = append(results, t.result(key, t.records[key], match))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Search matches term according to mode. In ModeAuto results are ranked
// exact match first, then prefix matches, then substring matches, each
// group in key order. limit <= 0 means no limit.
func (t *Table) Search(ctx context.Context, term string, mode Mode, limit int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := searchdata.EncodeKey(term)
	if key == "" {
		return nil, ErrEmptyTerm
	}

	ck := cacheKey{mode: mode, term: key, limit: limit}
	if t.cache != nil {
		if cached, ok := t.cache.Get(ck); ok {
			return cloneResults(cached), nil
		}
	}

	var results []Result
	var err error
	switch mode {
	case ModeExact:
		if rec, ok := t.records[key]; ok {
			results = []Result{t.result(key, rec, MatchExact)}
		}
	case ModePrefix:
		results = t.prefix(key, limit, "")
	case ModeSubstring:
		results, err = t.substring(ctx, key, limit, false)
	case ModeAuto, "":
		results, err = t.auto(ctx, key, limit)
	default:
		return nil, fmt.Errorf("unknown match mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.cache.Add(ck, results)
	}
	return cloneResults(results), nil
}

// cloneResults copies results down to their target and category slices so
// callers never share memory with the cache
func cloneResults(results []Result) []Result {
	if results == nil {
		return nil
	}
	out := make([]Result, len(results))
	for i, r := range results {
		r.Targets = append([]searchdata.Target(nil), r.Targets...)
		r.Categories = append([]string(nil), r.Categories...)
		out[i] = r
	}
	return out
}

func (t *Table) auto(ctx context.Context, key string, limit int) ([]Result, error) {
	var results []Result
	remaining := func() int {
		if limit <= 0 {
			return 0
		}
		return limit - len(results)
	}

	if rec, ok := t.records[key]; ok {
		results = append(results, t.result(key, rec, MatchExact))
	}
	if limit > 0 && len(results) >= limit {
		return results, nil
	}

	results = append(results, t.prefix(key, remaining(), key)...)
	if limit > 0 && len(results) >= limit {
		return results, nil
	}

	more, err := t.substring(ctx, key, remaining(), true)
	if err != nil {
		return nil, err
	}
	return append(results, more...), nil
}

func (t *Table) result(key string, rec *record, match Match) Result {
	return Result{
		Key:        key,
		Display:    rec.display,
		Targets:    append([]searchdata.Target(nil), rec.targets...),
		Categories: append([]string(nil), rec.categories...),
		Match:      match,
	}
}
