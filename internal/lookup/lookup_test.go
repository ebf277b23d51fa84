package lookup_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/doxsearch/mcp-server/internal/lookup"
	"github.com/doxsearch/mcp-server/internal/searchdata"
)

func target(url string) searchdata.Target {
	return searchdata.Target{URL: url, ParentFrame: true, Scope: "scope"}
}

func testShards() []*searchdata.Shard {
	return []*searchdata.Shard{
		{
			Name:     "all_1",
			Category: "all",
			Section:  1,
			Entries: []searchdata.Entry{
				{Key: "ab_5fc", Display: "ab_c", Targets: []searchdata.Target{target("p.html#ab_c")}},
				{Key: "abc", Display: "abc", Targets: []searchdata.Target{target("a.html#x")}},
				{Key: "abd", Display: "abd", Targets: []searchdata.Target{target("a.html#d")}},
				{Key: "xabc", Display: "xabc", Targets: []searchdata.Target{target("x.html")}},
			},
		},
		{
			Name:     "functions_1",
			Category: "functions",
			Section:  1,
			Entries: []searchdata.Entry{
				{Key: "abc", Display: "abc()", Targets: []searchdata.Target{target("a.html#x"), target("b.html#y")}},
			},
		},
	}
}

func keys(results []lookup.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Key)
	}
	return out
}

func mustBuild(t *testing.T, opts ...lookup.Option) *lookup.Table {
	t.Helper()
	table, err := lookup.Build(testShards(), opts...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return table
}

func TestBuild_MergesKeys(t *testing.T) {
	table := mustBuild(t)

	if table.Len() != 4 {
		t.Errorf("Len() = %d, want 4", table.Len())
	}

	res, ok := table.Exact("abc")
	if !ok {
		t.Fatal("Exact(abc) not found")
	}
	if res.Display != "abc" {
		t.Errorf("Display = %q, want first label %q", res.Display, "abc")
	}
	wantURLs := []string{"a.html#x", "b.html#y"}
	var gotURLs []string
	for _, tg := range res.Targets {
		gotURLs = append(gotURLs, tg.URL)
	}
	if !reflect.DeepEqual(gotURLs, wantURLs) {
		t.Errorf("target URLs = %v, want %v", gotURLs, wantURLs)
	}
	if !reflect.DeepEqual(res.Categories, []string{"all", "functions"}) {
		t.Errorf("Categories = %v", res.Categories)
	}

	stats := table.Stats()
	if stats.Keys != 4 || stats.Targets != 5 || stats.Shards != 2 {
		t.Errorf("Stats() = %+v, want 4 keys, 5 targets, 2 shards", stats)
	}
	if stats.ByCategory["all"] != 4 || stats.ByCategory["functions"] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
}

func TestBuild_EmptyKey(t *testing.T) {
	shards := []*searchdata.Shard{{
		Name:    "all_0",
		Entries: []searchdata.Entry{{Display: "x", Targets: []searchdata.Target{target("x.html")}}},
	}}
	if _, err := lookup.Build(shards); err == nil {
		t.Error("Build() expected error for empty key")
	}
}

func TestExact(t *testing.T) {
	table := mustBuild(t)

	tests := []struct {
		term  string
		found bool
		key   string
	}{
		{"abc", true, "abc"},
		{"ABC", true, "abc"},
		{"ab_c", true, "ab_5fc"},
		{"ab", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res, ok := table.Exact(tt.term)
			if ok != tt.found {
				t.Fatalf("Exact(%q) found = %v, want %v", tt.term, ok, tt.found)
			}
			if ok && res.Key != tt.key {
				t.Errorf("Key = %q, want %q", res.Key, tt.key)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	table := mustBuild(t)

	tests := []struct {
		term  string
		limit int
		want  []string
	}{
		{"ab", 0, []string{"ab_5fc", "abc", "abd"}},
		{"ab", 2, []string{"ab_5fc", "abc"}},
		{"ab_", 0, []string{"ab_5fc"}},
		{"x", 0, []string{"xabc"}},
		{"z", 0, []string{}},
		{"", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := keys(table.Prefix(tt.term, tt.limit))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Prefix(%q, %d) = %v, want %v", tt.term, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSubstring(t *testing.T) {
	table := mustBuild(t)

	got := keys(table.Substring("bc", 0))
	want := []string{"abc", "xabc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Substring(bc) = %v, want %v", got, want)
	}

	got = keys(table.Substring("_c", 0))
	if !reflect.DeepEqual(got, []string{"ab_5fc"}) {
		t.Errorf("Substring(_c) = %v", got)
	}
}

func TestSearch_Modes(t *testing.T) {
	table := mustBuild(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		term    string
		mode    lookup.Mode
		limit   int
		want    []string
		matches []lookup.Match
	}{
		{
			name:    "auto ranks exact before substring",
			term:    "abc",
			mode:    lookup.ModeAuto,
			want:    []string{"abc", "xabc"},
			matches: []lookup.Match{lookup.MatchExact, lookup.MatchSubstring},
		},
		{
			name:    "auto prefix then substring",
			term:    "ab",
			mode:    lookup.ModeAuto,
			want:    []string{"ab_5fc", "abc", "abd", "xabc"},
			matches: []lookup.Match{lookup.MatchPrefix, lookup.MatchPrefix, lookup.MatchPrefix, lookup.MatchSubstring},
		},
		{
			name:  "auto with limit",
			term:  "ab",
			mode:  lookup.ModeAuto,
			limit: 2,
			want:  []string{"ab_5fc", "abc"},
		},
		{
			name: "prefix only",
			term: "ab",
			mode: lookup.ModePrefix,
			want: []string{"ab_5fc", "abc", "abd"},
		},
		{
			name:    "substring includes prefixed keys",
			term:    "abc",
			mode:    lookup.ModeSubstring,
			want:    []string{"abc", "xabc"},
			matches: []lookup.Match{lookup.MatchExact, lookup.MatchSubstring},
		},
		{
			name: "exact",
			term: "Abd",
			mode: lookup.ModeExact,
			want: []string{"abd"},
		},
		{
			name: "no match",
			term: "zzz",
			mode: lookup.ModeAuto,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := table.Search(ctx, tt.term, tt.mode, tt.limit)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got := keys(results); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q, %s) = %v, want %v", tt.term, tt.mode, got, tt.want)
			}
			for i, m := range tt.matches {
				if results[i].Match != m {
					t.Errorf("results[%d].Match = %v, want %v", i, results[i].Match, m)
				}
			}
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	table := mustBuild(t)

	if _, err := table.Search(context.Background(), "", lookup.ModeAuto, 0); !errors.Is(err, lookup.ErrEmptyTerm) {
		t.Errorf("empty term error = %v, want ErrEmptyTerm", err)
	}

	if _, err := table.Search(context.Background(), "ab", lookup.Mode("fuzzy"), 0); err == nil {
		t.Error("expected error for unknown mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := table.Search(ctx, "ab", lookup.ModeAuto, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled search error = %v, want context.Canceled", err)
	}
}

func TestSearch_Cache(t *testing.T) {
	for _, size := range []int{0, 1, lookup.DefaultCacheSize} {
		table := mustBuild(t, lookup.WithCacheSize(size))

		first, err := table.Search(context.Background(), "ab", lookup.ModeAuto, 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		first[0].Targets[0].URL = "mutated.html"
		first[0].Categories[0] = "mutated"
		first[0] = lookup.Result{Key: "mutated"}

		second, err := table.Search(context.Background(), "ab", lookup.ModeAuto, 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if second[0].Key != "ab_5fc" {
			t.Errorf("cache size %d: cached result was modified by caller, got %q", size, second[0].Key)
		}
		if second[0].Targets[0].URL == "mutated.html" || second[0].Categories[0] == "mutated" {
			t.Errorf("cache size %d: cached targets were modified by caller: %+v", size, second[0])
		}

		third, _ := table.Search(context.Background(), "ab", lookup.ModeAuto, 1)
		if len(third) != 1 {
			t.Errorf("cache size %d: limit is part of cache key, got %d results", size, len(third))
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    lookup.Mode
		wantErr bool
	}{
		{"", lookup.ModeAuto, false},
		{"auto", lookup.ModeAuto, false},
		{"Prefix", lookup.ModePrefix, false},
		{" substring ", lookup.ModeSubstring, false},
		{"exact", lookup.ModeExact, false},
		{"regex", "", true},
	}

	for _, tt := range tests {
		got, err := lookup.ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGeneratedShards(t *testing.T) {
	var shards []*searchdata.Shard
	for _, name := range []string{"all_10.js", "functions_5.js", "functions_f.js"} {
		shard, err := searchdata.ParseFile(filepath.Join("..", "searchdata", "testdata", name))
		if err != nil {
			t.Fatalf("ParseFile(%s) error = %v", name, err)
		}
		shards = append(shards, shard)
	}

	table, err := lookup.Build(shards)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	res, ok := table.Exact("partition_legion")
	if !ok {
		t.Fatal("partition_legion not found")
	}
	if len(res.Targets) != 2 {
		t.Errorf("partition_legion targets = %d, want 2", len(res.Targets))
	}
	if !reflect.DeepEqual(res.Categories, []string{"all", "functions"}) {
		t.Errorf("partition_legion categories = %v", res.Categories)
	}

	// Two "point" entries in all_10 merge into one key.
	point, ok := table.Exact("point")
	if !ok || len(point.Targets) != 4 {
		t.Errorf("point targets = %d, want 4", len(point.Targets))
	}

	got := keys(table.Prefix("partition", 0))
	want := []string{"partition", "partition_2ecc", "partition_5f", "partition_5flegion", "partition_5fvertices", "partitioner_2eh"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Prefix(partition) = %v, want %v", got, want)
	}
}
