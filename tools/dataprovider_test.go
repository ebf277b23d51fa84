package tools

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMockDataProvider_ReadFile(t *testing.T) {
	mock := NewMockDataProvider()
	mock.AddFile("data/search/all_0.js", []byte("var searchData=[];"))

	content, err := mock.ReadFile("data/search/all_0.js")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(content) != "var searchData=[];" {
		t.Errorf("Unexpected content: %s", string(content))
	}

	if _, err := mock.ReadFile("data/search/missing.js"); err != fs.ErrNotExist {
		t.Errorf("Expected fs.ErrNotExist, got: %v", err)
	}
}

func TestMockDataProvider_ReadDir(t *testing.T) {
	mock := NewMockDataProvider()
	mock.AddFile("data/search/functions_0.js", []byte("b"))
	mock.AddFile("data/search/all_0.js", []byte("a"))
	mock.AddFile("data/search/extra/notes.txt", []byte("c"))
	mock.AddFile("data/searchdata.js", []byte("d"))

	entries, err := mock.ReadDir("data/search")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []struct {
		name  string
		isDir bool
	}{
		{"all_0.js", false},
		{"extra", true},
		{"functions_0.js", false},
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got: %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Name() != w.name || entries[i].IsDir() != w.isDir {
			t.Errorf("entry %d = (%s, dir=%v), want (%s, dir=%v)", i, entries[i].Name(), entries[i].IsDir(), w.name, w.isDir)
		}
	}

	if _, err := mock.ReadDir("data/missing"); err != fs.ErrNotExist {
		t.Errorf("Expected fs.ErrNotExist, got: %v", err)
	}
}

func TestMockDataProvider_SetAndReset(t *testing.T) {
	mock := NewMockDataProvider()
	mock.AddFile("data/search/all_0.js", []byte("x"))

	originalProvider := defaultDataProvider
	defer func() { defaultDataProvider = originalProvider }()

	SetDefaultDataProvider(mock)
	if _, err := defaultDataProvider.ReadFile("data/search/all_0.js"); err != nil {
		t.Fatalf("Expected mock provider to be used, got: %v", err)
	}

	ResetDefaultDataProvider()
	if defaultDataProvider == mock {
		t.Error("Expected defaultDataProvider to be reset")
	}
}

func TestEmbeddedDataProvider(t *testing.T) {
	provider := NewEmbeddedDataProvider()

	entries, err := provider.ReadDir(embeddedShardDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name()] = true
	}
	for _, want := range []string{"all_10.js", "functions_5.js", "functions_f.js", "searchdata.js"} {
		if !names[want] {
			t.Errorf("embedded shard %s missing", want)
		}
	}
}

func TestExtractEmbeddedShards(t *testing.T) {
	oldDataDir := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = oldDataDir }()

	originalProvider := defaultDataProvider
	defer func() { defaultDataProvider = originalProvider }()

	mock := NewMockDataProvider()
	mock.AddFile("data/search/all_0.js", []byte("var searchData=[['a',['a',['../a.html',1,'']]]];"))
	mock.AddFile("data/search/searchdata.js", []byte(`var indexSectionsWithContent = { 0: "a" };`))
	SetDefaultDataProvider(mock)

	if hasLocalShards() {
		t.Fatal("expected no local shards before extraction")
	}
	if err := extractEmbeddedShards(); err != nil {
		t.Fatalf("extractEmbeddedShards() error = %v", err)
	}
	if !hasLocalShards() {
		t.Error("expected local shards after extraction")
	}
	if _, err := os.Stat(filepath.Join(shardDir(), "searchdata.js")); err != nil {
		t.Errorf("searchdata.js not extracted: %v", err)
	}

	SetDefaultDataProvider(NewMockDataProvider())
	if err := extractEmbeddedShards(); err == nil {
		t.Error("expected error from empty provider")
	}
}
