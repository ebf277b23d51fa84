package searchdata

// Target is one destination for a search entry
type Target struct {
	URL         string `json:"url"`                    // Page-relative URL, e.g. "../classfoo.html#a1b2"
	ParentFrame bool   `json:"parent_frame,omitempty"` // Open in the parent frame instead of the results frame
	Scope       string `json:"scope"`                  // Enclosing scope label, e.g. "flecsi::topology"
}

// Entry is a single search key with the targets it resolves to
type Entry struct {
	Key     string   `json:"key"`     // Encoded search id, e.g. "partition_5flegion"
	Display string   `json:"display"` // Label as shown in the results list
	Targets []Target `json:"targets"`
}

// Shard is the content of one generated search file
type Shard struct {
	Name     string  `json:"name"`     // File stem, e.g. "all_10"
	Category string  `json:"category"` // Section name, e.g. "all" or "functions"
	Section  int     `json:"section"`  // Index into the category's first-character list, -1 if unknown
	Entries  []Entry `json:"entries"`
}

// FirstChar returns the decoded first character shared by the entries of the shard.
// Returns 0 if the shard is empty or its first key does not decode.
func (s *Shard) FirstChar() rune {
	if len(s.Entries) == 0 {
		return 0
	}
	return firstRune(s.Entries[0].Key)
}

// TargetCount returns the total number of targets across all entries
func (s *Shard) TargetCount() int {
	n := 0
	for _, e := range s.Entries {
		n += len(e.Targets)
	}
	return n
}
