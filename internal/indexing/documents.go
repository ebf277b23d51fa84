package indexing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/doxsearch/mcp-server/internal/searchdata"
)

// ShardSet is a parsed collection of shards with its optional section table
type ShardSet struct {
	Sections searchdata.Sections // nil when no searchdata.js was found
	Shards   []*searchdata.Shard
}

// Entries groups every entry by category, in shard order
func (s *ShardSet) Entries() map[string][]searchdata.Entry {
	byCategory := make(map[string][]searchdata.Entry)
	for _, shard := range s.Shards {
		byCategory[shard.Category] = append(byCategory[shard.Category], shard.Entries...)
	}
	return byCategory
}

// LoadShardDir reads every shard in dir
func LoadShardDir(dir string) (*ShardSet, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read shard directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return LoadShards(os.DirFS(dir), ".")
}

// LoadShards reads every "<category>_<hex>.js" file in dir of fsys, sorted by name,
// together with searchdata.js when present
func LoadShards(fsys fs.FS, dir string) (*ShardSet, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list shards: %w", err)
	}

	set := &ShardSet{}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".js" {
			continue
		}
		if name == searchdata.SectionsFile {
			f, err := fsys.Open(path.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", name, err)
			}
			set.Sections, err = searchdata.ParseSections(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		if _, _, ok := searchdata.SplitShardName(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		shard, err := loadShard(fsys, path.Join(dir, name))
		if errors.Is(err, searchdata.ErrNotShard) {
			continue
		}
		if err != nil {
			return nil, err
		}
		set.Shards = append(set.Shards, shard)
	}

	return set, nil
}

func loadShard(fsys fs.FS, name string) (*searchdata.Shard, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}
	defer f.Close()

	shard, err := searchdata.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.Base(name), err)
	}

	shard.Name = strings.TrimSuffix(path.Base(name), ".js")
	shard.Category, shard.Section, _ = searchdata.SplitShardName(shard.Name)
	return shard, nil
}

// BuildDocuments flattens shards into one document per target with enriched metadata.
// baseURL is the documentation root; when empty, URLs are kept as generated.
func BuildDocuments(shards []*searchdata.Shard, baseURL string) []SymbolDoc {
	var docs []SymbolDoc
	for _, shard := range shards {
		for i, entry := range shard.Entries {
			for j, target := range entry.Targets {
				docs = append(docs, NewSymbolDoc(shard, entry, target, fmt.Sprintf("%s:%d:%d", shard.Name, i, j), baseURL))
			}
		}
	}
	return docs
}

// Fingerprint identifies the documents BuildDocuments produces for shards and
// baseURL. An index is reusable only for the fingerprint it was built from.
func Fingerprint(shards []*searchdata.Shard, baseURL string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "v%d\n%s\n", IndexSchemaVersion, baseURL)
	for _, shard := range shards {
		fmt.Fprintf(h, "%s\n", shard.Name)
		// Canonical form: whitespace-only edits keep the fingerprint
		if err := searchdata.Write(h, shard); err != nil {
			return "", fmt.Errorf("failed to fingerprint shard %s: %w", shard.Name, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NewSymbolDoc builds the document for a single target
func NewSymbolDoc(shard *searchdata.Shard, entry searchdata.Entry, target searchdata.Target, id, baseURL string) SymbolDoc {
	page, anchor := SplitURL(target.URL)
	info := DecodePageName(page)

	kind := info.Kind
	if anchor != "" {
		kind = KindMember
	}

	doc := SymbolDoc{
		ID:         id,
		Key:        entry.Key,
		Name:       entry.Display,
		Kind:       kind,
		Scope:      target.Scope,
		Compound:   info.Compound,
		Breadcrumb: BuildBreadcrumb(info, entry.Display, anchor != ""),
		Page:       page,
		Anchor:     anchor,
		URL:        ResolveURL(baseURL, target.URL),
		Keywords:   ExtractKeywords(entry.Display, target.Scope),
		Shard:      shard.Name,
		Category:   shard.Category,
	}
	return doc
}
