package searchdata

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// SectionsFile is the name of the file that lists the available shards
const SectionsFile = "searchdata.js"

// Section describes one search category and the first characters that have shards
type Section struct {
	Index int    `json:"index"`
	Name  string `json:"name"`  // e.g. "functions"
	Label string `json:"label"` // e.g. "Functions"
	Chars string `json:"chars"` // First characters with content, in shard order
}

// Sections is the ordered section table of a search index
type Sections []Section

// DefaultSections lists the categories in the order the generator emits them
var DefaultSections = Sections{
	{Index: 0, Name: "all", Label: "All"},
	{Index: 1, Name: "classes", Label: "Classes"},
	{Index: 2, Name: "namespaces", Label: "Namespaces"},
	{Index: 3, Name: "files", Label: "Files"},
	{Index: 4, Name: "functions", Label: "Functions"},
	{Index: 5, Name: "variables", Label: "Variables"},
	{Index: 6, Name: "typedefs", Label: "Typedefs"},
	{Index: 7, Name: "enums", Label: "Enumerations"},
	{Index: 8, Name: "enumvalues", Label: "Enumerator"},
	{Index: 9, Name: "related", Label: "Friends"},
	{Index: 10, Name: "defines", Label: "Macros"},
	{Index: 11, Name: "groups", Label: "Modules"},
	{Index: 12, Name: "pages", Label: "Pages"},
}

// Lookup returns the section with the given name
func (s Sections) Lookup(name string) (Section, bool) {
	for _, sec := range s {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// ShardFor returns the shard file name holding entries of category that start with r
func (s Sections) ShardFor(category string, r rune) (string, bool) {
	sec, ok := s.Lookup(category)
	if !ok {
		return "", false
	}
	idx := runeIndex(sec.Chars, unicode.ToLower(r))
	if idx < 0 {
		return "", false
	}
	return ShardFileName(category, idx), true
}

// ShardFiles returns every shard file name listed by the table, section by section
func (s Sections) ShardFiles() []string {
	var files []string
	for _, sec := range s {
		for i := range []rune(sec.Chars) {
			files = append(files, ShardFileName(sec.Name, i))
		}
	}
	return files
}

// CharAt returns the first character that shard number idx of category covers
func (s Sections) CharAt(category string, idx int) (rune, bool) {
	sec, ok := s.Lookup(category)
	if !ok {
		return 0, false
	}
	chars := []rune(sec.Chars)
	if idx < 0 || idx >= len(chars) {
		return 0, false
	}
	return chars[idx], true
}

// ShardFileName builds the file name of a shard, e.g. ("all", 16) -> "all_10.js"
func ShardFileName(category string, section int) string {
	return fmt.Sprintf("%s_%x.js", category, section)
}

// SplitShardName splits a shard stem such as "functions_f" into its category and section
func SplitShardName(stem string) (string, int, bool) {
	stem = strings.TrimSuffix(stem, ".js")
	i := strings.LastIndex(stem, "_")
	if i <= 0 || i == len(stem)-1 {
		return "", 0, false
	}
	section, err := strconv.ParseInt(stem[i+1:], 16, 32)
	if err != nil || section < 0 {
		return "", 0, false
	}
	return stem[:i], int(section), true
}

// ParseSections reads a searchdata.js file.
// It understands indexSectionsWithContent, indexSectionNames and indexSectionLabels;
// other declarations are ignored.
func ParseSections(r io.Reader) (Sections, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read sections: %w", err)
	}

	p := &parser{src: data}
	decls := map[string]map[string]any{}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}
		if !p.consumeWord("var") {
			return nil, p.errorf(p.pos, "expected variable declaration")
		}
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
			p.pos++
		}
		name := string(p.src[start:p.pos])
		if name == "" {
			return nil, p.errorf(start, "expected variable name")
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '=' {
			return nil, p.errorf(p.pos, "expected '=' after %s", name)
		}
		p.pos++

		val, err := p.value()
		if err != nil {
			return nil, err
		}
		if obj, ok := val.(map[string]any); ok {
			decls[name] = obj
		}

		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ';' {
			p.pos++
		}
	}

	content, ok := decls["indexSectionsWithContent"]
	if !ok {
		return nil, fmt.Errorf("sections: missing indexSectionsWithContent")
	}

	var sections Sections
	for key, raw := range content {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("sections: invalid section index %q", key)
		}
		chars, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("sections: content of section %d must be a string", idx)
		}

		sec := Section{Index: idx, Chars: chars}
		if name, ok := decls["indexSectionNames"][key].(string); ok {
			sec.Name = name
		} else if idx < len(DefaultSections) {
			sec.Name = DefaultSections[idx].Name
		}
		if label, ok := decls["indexSectionLabels"][key].(string); ok {
			sec.Label = label
		} else if def, ok := DefaultSections.Lookup(sec.Name); ok {
			sec.Label = def.Label
		}
		if sec.Name == "" {
			return nil, fmt.Errorf("sections: no name for section %d", idx)
		}
		sections = append(sections, sec)
	}

	sort.Slice(sections, func(i, j int) bool { return sections[i].Index < sections[j].Index })
	return sections, nil
}

// ParseSectionsFile reads a searchdata.js file from disk
func ParseSectionsFile(path string) (Sections, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sections: %w", err)
	}
	defer f.Close()
	return ParseSections(f)
}

// Group partitions entries by category and first character into shards.
// Entries within a shard are sorted by key; equal keys keep their input order.
// The returned table has one section per category that has entries.
func Group(byCategory map[string][]Entry) (Sections, []*Shard) {
	categories := make([]string, 0, len(byCategory))
	for cat, entries := range byCategory {
		if len(entries) > 0 {
			categories = append(categories, cat)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return categoryOrder(categories[i]) < categoryOrder(categories[j]) ||
			(categoryOrder(categories[i]) == categoryOrder(categories[j]) && categories[i] < categories[j])
	})

	var sections Sections
	var shards []*Shard

	for idx, cat := range categories {
		buckets := map[rune][]Entry{}
		for _, e := range byCategory[cat] {
			r := bucketRune(e.Key)
			buckets[r] = append(buckets[r], e)
		}

		chars := make([]rune, 0, len(buckets))
		for r := range buckets {
			chars = append(chars, r)
		}
		sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

		sec := Section{Index: idx, Name: cat, Label: categoryLabel(cat), Chars: string(chars)}
		sections = append(sections, sec)

		for i, r := range chars {
			entries := buckets[r]
			sort.SliceStable(entries, func(a, b int) bool { return entries[a].Key < entries[b].Key })
			shards = append(shards, &Shard{
				Name:     strings.TrimSuffix(ShardFileName(cat, i), ".js"),
				Category: cat,
				Section:  i,
				Entries:  entries,
			})
		}
	}

	return sections, shards
}

func bucketRune(key string) rune {
	if r := firstRune(key); r != 0 {
		return unicode.ToLower(r)
	}
	if key == "" {
		return 0
	}
	return rune(key[0])
}

func categoryOrder(name string) int {
	if sec, ok := DefaultSections.Lookup(name); ok {
		return sec.Index
	}
	return len(DefaultSections)
}

func categoryLabel(name string) string {
	if sec, ok := DefaultSections.Lookup(name); ok {
		return sec.Label
	}
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func runeIndex(s string, r rune) int {
	for i, c := range []rune(s) {
		if c == r {
			return i
		}
	}
	return -1
}
