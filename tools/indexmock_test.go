package tools

import (
	"fmt"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

// mockIndex is an in-memory Index for tests
type mockIndex struct {
	id          int
	docCount    uint64
	searchError error
	closeError  error
	closed      atomic.Bool
}

func newMockIndex(id int) *mockIndex {
	return &mockIndex{
		id:       id,
		docCount: 100,
	}
}

func (m *mockIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	if m.searchError != nil {
		return nil, m.searchError
	}
	return &bleve.SearchResult{
		Request: req,
		Total:   m.docCount,
	}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, fmt.Errorf("index closed")
	}
	return m.docCount, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Load() {
		return fmt.Errorf("already closed")
	}
	m.closed.Store(true)
	return m.closeError
}

func (m *mockIndex) IsClosed() bool {
	return m.closed.Load()
}

// mockCatalog wraps a mock index in a catalog with an empty lookup table
func mockCatalog(idx *mockIndex) *catalog {
	return &catalog{index: idx, source: fmt.Sprintf("mock-%d", idx.id)}
}
