package tools

import (
	"embed"
	"io/fs"
)

// Sample search shards bundled with the binary so the server answers queries
// before any shard directory or remote source is configured.

//go:embed data/search/*.js
var embeddedFS embed.FS

// embeddedShardDir is the directory of the bundled shards inside the provider
const embeddedShardDir = "data/search"

// embeddedDataProvider implements DataProvider using embed.FS
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates a DataProvider backed by the bundled shards
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

func (p *embeddedDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	return p.fs.ReadDir(name)
}

var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
