package tools

import (
	"io/fs"
)

// DataProvider gives access to the bundled shard files.
//
// Implementations:
//   - embeddedDataProvider: embed.FS compiled into the binary
//   - MockDataProvider: in-memory map for tests
type DataProvider interface {
	// ReadFile reads a file relative to the data root, e.g. "data/search/all_10.js"
	ReadFile(name string) ([]byte, error)

	// ReadDir lists a directory relative to the data root, e.g. "data/search"
	ReadDir(name string) ([]fs.DirEntry, error)
}
