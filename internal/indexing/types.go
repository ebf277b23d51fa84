package indexing

// SymbolDoc represents one search target in the full-text index
type SymbolDoc struct {
	ID         string   `json:"id"`
	Key        string   `json:"key"`                  // Encoded search id, e.g. "partition_5flegion"
	Name       string   `json:"name"`                 // Display label
	Kind       string   `json:"kind"`                 // class, struct, namespace, file, member, ...
	Scope      string   `json:"scope"`                // Scope label as generated
	Compound   string   `json:"compound,omitempty"`   // Decoded compound owning the page, e.g. "flecsi::tree::branch_id"
	Breadcrumb string   `json:"breadcrumb,omitempty"` // "flecsi > tree > branch_id > parent"
	Page       string   `json:"page"`                 // e.g. "classflecsi_1_1tree_1_1branch__id.html"
	Anchor     string   `json:"anchor,omitempty"`
	URL        string   `json:"url"` // Absolute when a base URL is configured, otherwise as generated
	Keywords   []string `json:"keywords,omitempty"`
	Shard      string   `json:"shard"`    // Source shard, e.g. "all_10"
	Category   string   `json:"category"` // Source category, e.g. "all"
}
