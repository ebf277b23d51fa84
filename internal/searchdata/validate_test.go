package searchdata_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/doxsearch/mcp-server/internal/searchdata"
)

func loadTestdata(t *testing.T) (searchdata.Sections, []*searchdata.Shard) {
	t.Helper()

	sections, err := searchdata.ParseSectionsFile(filepath.Join("testdata", searchdata.SectionsFile))
	if err != nil {
		t.Fatalf("ParseSectionsFile() error = %v", err)
	}

	var shards []*searchdata.Shard
	for _, file := range []string{"all_10.js", "functions_5.js", "functions_f.js"} {
		shard, err := searchdata.ParseFile(filepath.Join("testdata", file))
		if err != nil {
			t.Fatalf("ParseFile(%s) error = %v", file, err)
		}
		shards = append(shards, shard)
	}
	return sections, shards
}

func TestValidate_GeneratedShards(t *testing.T) {
	sections, shards := loadTestdata(t)

	wantWarnings := map[string]int{
		"all_10":      5, // physicalarray, physicalscalar, point, push, pvecitem
		"functions_5": 0,
		"functions_f": 0,
	}

	for _, shard := range shards {
		problems := searchdata.Validate(shard, sections)
		if searchdata.HasErrors(problems) {
			t.Errorf("%s: unexpected errors: %v", shard.Name, problems)
		}
		if len(problems) != wantWarnings[shard.Name] {
			t.Errorf("%s: got %d warnings, want %d: %v", shard.Name, len(problems), wantWarnings[shard.Name], problems)
		}
	}
}

func TestValidate_Problems(t *testing.T) {
	ok := []searchdata.Target{{URL: "../a.html#a1", ParentFrame: true}}

	tests := []struct {
		name    string
		entry   searchdata.Entry
		message string
	}{
		{
			name:    "empty key",
			entry:   searchdata.Entry{Key: "", Display: "x", Targets: ok},
			message: "empty key",
		},
		{
			name:    "undecodable key",
			entry:   searchdata.Entry{Key: "a_zz", Display: "x", Targets: ok},
			message: "does not decode",
		},
		{
			name:    "wrong first character",
			entry:   searchdata.Entry{Key: "banana", Display: "banana", Targets: ok},
			message: "shard holds 'a'",
		},
		{
			name:    "empty display",
			entry:   searchdata.Entry{Key: "abc", Display: " ", Targets: ok},
			message: "empty display",
		},
		{
			name:    "no targets",
			entry:   searchdata.Entry{Key: "abc", Display: "abc"},
			message: "no targets",
		},
		{
			name:    "bad anchor",
			entry:   searchdata.Entry{Key: "abc", Display: "abc", Targets: []searchdata.Target{{URL: "../a.html#a b"}}},
			message: "whitespace",
		},
		{
			name:    "empty anchor",
			entry:   searchdata.Entry{Key: "abc", Display: "abc", Targets: []searchdata.Target{{URL: "../a.html#"}}},
			message: "empty anchor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shard := &searchdata.Shard{
				Name:    "all_1",
				Section: -1,
				Entries: []searchdata.Entry{{Key: "apple", Display: "apple", Targets: ok}, tt.entry},
			}

			problems := searchdata.Validate(shard, nil)
			if !searchdata.HasErrors(problems) {
				t.Fatalf("expected an error, got %v", problems)
			}
			found := false
			for _, p := range problems {
				if p.Entry == 1 && strings.Contains(p.Message, tt.message) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected problem containing %q on entry 1, got %v", tt.message, problems)
			}
		})
	}
}

func TestValidate_UnknownSection(t *testing.T) {
	sections, shards := loadTestdata(t)
	shard := *shards[0]
	shard.Section = 99

	problems := searchdata.Validate(&shard, sections)
	if !searchdata.HasErrors(problems) {
		t.Error("expected error for a section outside the table")
	}
}

func TestValidFragment(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{input: "a9c04775cb1db95bf7b60b24822e380f0", valid: true},
		{input: "section-with-parentheses", valid: true},
		{input: "path/to?x=1", valid: true},
		{input: "caf%C3%A9", valid: true},
		{input: "bad%zz", valid: false},
		{input: "trunc%4", valid: false},
		{input: "has space", valid: false},
		{input: "hash#hash", valid: false},
		{input: "angle<bracket>", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := searchdata.ValidFragment(tt.input); got != tt.valid {
				t.Errorf("ValidFragment(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	_, shards := loadTestdata(t)

	for _, shard := range shards {
		problems, err := searchdata.ValidateJSON(shard)
		if err != nil {
			t.Fatalf("%s: ValidateJSON() error = %v", shard.Name, err)
		}
		if len(problems) != 0 {
			t.Errorf("%s: unexpected schema problems: %v", shard.Name, problems)
		}
	}

	bad := &searchdata.Shard{
		Name:    "all_0",
		Section: 0,
		Entries: []searchdata.Entry{
			{Key: "ok", Display: "ok", Targets: []searchdata.Target{{URL: "../ok.html"}}},
			{Key: "Not Encoded", Display: "x", Targets: []searchdata.Target{}},
		},
	}

	problems, err := searchdata.ValidateJSON(bad)
	if err != nil {
		t.Fatalf("ValidateJSON() error = %v", err)
	}
	if len(problems) == 0 {
		t.Fatal("expected schema problems for invalid shard")
	}
	for _, p := range problems {
		if p.Entry != 1 {
			t.Errorf("problem should point at entry 1, got %+v", p)
		}
		if p.Key != "Not Encoded" {
			t.Errorf("problem key = %q, want %q", p.Key, "Not Encoded")
		}
	}
}
