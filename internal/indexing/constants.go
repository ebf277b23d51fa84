package indexing

// Indexing constants
const (
	// BatchSize is the number of documents submitted per index batch
	BatchSize = 100

	// MaxKeywords caps the keywords stored per document
	MaxKeywords = 10

	// IndexSchemaVersion increments when the document layout changes
	// v1: one document per target with page, anchor and scope metadata
	IndexSchemaVersion = 1

	// VersionFile and FingerprintFile are written next to the index directory
	VersionFile     = ".index_version"
	FingerprintFile = ".index_fingerprint"
)
