package indexing

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// NewIndexMapping returns the bleve mapping for SymbolDoc.
// Identifiers (key, kind, category, shard, page, anchor) are keyword fields so
// they can be filtered exactly; names, scopes and keywords are analyzed text.
func NewIndexMapping() *mapping.IndexMappingImpl {
	keyword := func() *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
		return fm
	}
	text := bleve.NewTextFieldMapping

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("key", keyword())
	doc.AddFieldMappingsAt("kind", keyword())
	doc.AddFieldMappingsAt("category", keyword())
	doc.AddFieldMappingsAt("shard", keyword())
	doc.AddFieldMappingsAt("page", keyword())
	doc.AddFieldMappingsAt("anchor", keyword())
	doc.AddFieldMappingsAt("name", text())
	doc.AddFieldMappingsAt("scope", text())
	doc.AddFieldMappingsAt("compound", text())
	doc.AddFieldMappingsAt("breadcrumb", text())
	doc.AddFieldMappingsAt("keywords", text())
	doc.AddFieldMappingsAt("url", stored)
	doc.AddFieldMappingsAt("id", stored)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// BuildIndex creates a new bleve index at path holding docs, submitting them in
// batches of BatchSize. progress, when non-nil, is called after every batch.
// On failure the partially written index is removed.
func BuildIndex(path string, docs []SymbolDoc, progress func(done, total int)) error {
	index, err := bleve.New(path, NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	fail := func(err error) error {
		index.Close()
		os.RemoveAll(path)
		return err
	}

	batch := index.NewBatch()
	for i, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fail(fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err))
		}

		if (i+1)%BatchSize == 0 {
			if err := index.Batch(batch); err != nil {
				return fail(fmt.Errorf("failed to index batch: %w", err))
			}
			batch = index.NewBatch()
			if progress != nil {
				progress(i+1, len(docs))
			}
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fail(fmt.Errorf("failed to index final batch: %w", err))
		}
		if progress != nil {
			progress(len(docs), len(docs))
		}
	}

	if err := index.Close(); err != nil {
		os.RemoveAll(path)
		return fmt.Errorf("failed to close index: %w", err)
	}
	return nil
}
