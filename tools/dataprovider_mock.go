package tools

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MockDataProvider implements DataProvider over an in-memory file map
type MockDataProvider struct {
	files map[string][]byte
}

// NewMockDataProvider creates an empty mock provider
func NewMockDataProvider() *MockDataProvider {
	return &MockDataProvider{
		files: make(map[string][]byte),
	}
}

// AddFile adds a file to the mock provider
func (m *MockDataProvider) AddFile(name string, content []byte) {
	m.files[name] = content
}

func (m *MockDataProvider) ReadFile(name string) ([]byte, error) {
	content, exists := m.files[name]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return content, nil
}

// ReadDir lists the files and implied subdirectories under name, sorted by name
func (m *MockDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	prefix := strings.TrimSuffix(name, "/") + "/"
	if name == "." {
		prefix = ""
	}

	seen := make(map[string]bool)
	var entries []fs.DirEntry
	for filePath := range m.files {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		rest := filePath[len(prefix):]
		child, _, isDir := strings.Cut(rest, "/")
		if child == "" || seen[child] {
			continue
		}
		seen[child] = true
		entries = append(entries, &mockDirEntry{name: path.Base(child), isDir: isDir})
	}

	if len(entries) == 0 {
		return nil, fs.ErrNotExist
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

type mockDirEntry struct {
	name  string
	isDir bool
}

func (e *mockDirEntry) Name() string { return e.name }
func (e *mockDirEntry) IsDir() bool  { return e.isDir }

func (e *mockDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}

func (e *mockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: e.name, isDir: e.isDir}, nil
}

type mockFileInfo struct {
	name  string
	isDir bool
}

func (i *mockFileInfo) Name() string       { return i.name }
func (i *mockFileInfo) Size() int64        { return 0 }
func (i *mockFileInfo) Mode() fs.FileMode  { return 0 }
func (i *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (i *mockFileInfo) IsDir() bool        { return i.isDir }
func (i *mockFileInfo) Sys() interface{}   { return nil }

// SetDefaultDataProvider replaces the provider used for bundled shards
func SetDefaultDataProvider(provider DataProvider) {
	defaultDataProvider = provider
}

// ResetDefaultDataProvider restores the embedded provider
func ResetDefaultDataProvider() {
	defaultDataProvider = NewEmbeddedDataProvider()
}
