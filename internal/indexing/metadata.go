package indexing

import (
	"net/url"
	"path"
	"sort"
	"strings"
	"unicode"
)

// Symbol kinds derived from documentation page names
const (
	KindNamespace = "namespace"
	KindClass     = "class"
	KindStruct    = "struct"
	KindUnion     = "union"
	KindInterface = "interface"
	KindFile      = "file"
	KindGroup     = "group"
	KindDir       = "dir"
	KindPage      = "page"
	KindMember    = "member"
)

// compoundPrefixes maps page name prefixes to kinds, longest match first
var compoundPrefixes = []struct {
	prefix string
	kind   string
}{
	{"namespace", KindNamespace},
	{"interface", KindInterface},
	{"struct", KindStruct},
	{"class", KindClass},
	{"union", KindUnion},
	{"group__", KindGroup},
	{"dir_", KindDir},
}

// pageEscapes is the generator's file name escaping table (two-character codes)
var pageEscapes = map[string]byte{
	"1": ':', "2": '/', "3": '<', "4": '>', "5": '*', "6": '&', "7": '|', "8": '.', "9": '!',
	"00": ',', "01": ' ', "02": '{', "03": '}', "04": '?', "05": '^', "06": '%', "07": '(',
	"08": ')', "09": '+', "0a": '=', "0b": '$', "0c": '\\', "0d": '@', "0e": ']', "0f": '[', "0g": '#',
}

// PageInfo describes what a documentation page documents
type PageInfo struct {
	Kind     string
	Compound string // Decoded name, e.g. "flecsi::topology::mesh_topology_t" or "partition.cc"
}

// DecodePageName decodes a generated page file name.
// Example: "classflecsi_1_1tree_1_1branch__id.html" -> {class, "flecsi::tree::branch_id"}
func DecodePageName(page string) PageInfo {
	page = path.Base(page)
	stem := strings.TrimSuffix(page, path.Ext(page))

	// File pages end in an escaped extension, even when the file name
	// starts like a compound or listing page ("structured__mesh_8h", "class_8h")
	name := UnescapePageName(stem)
	if hasFileExtension(name) {
		return PageInfo{Kind: KindFile, Compound: name}
	}

	if isIndexPage(stem) {
		return PageInfo{Kind: KindPage, Compound: stem}
	}

	for _, cp := range compoundPrefixes {
		if strings.HasPrefix(stem, cp.prefix) && len(stem) > len(cp.prefix) {
			return PageInfo{Kind: cp.kind, Compound: UnescapePageName(stem[len(cp.prefix):])}
		}
	}

	if strings.Contains(name, ".") {
		return PageInfo{Kind: KindFile, Compound: name}
	}
	return PageInfo{Kind: KindPage, Compound: name}
}

// hasFileExtension reports whether name ends in ".<letters or digits>"
func hasFileExtension(name string) bool {
	ext := path.Ext(name)
	if len(ext) < 2 {
		return false
	}
	for _, r := range ext[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// indexPages are the generator's own listing pages
var indexPages = map[string]bool{
	"index": true, "annotated": true, "classes": true, "hierarchy": true, "files": true,
	"namespaces": true, "modules": true, "pages": true, "functions": true, "globals": true,
	"namespacemembers": true, "inherits": true,
}

func isIndexPage(stem string) bool {
	if indexPages[stem] {
		return true
	}
	for _, prefix := range []string{"functions_", "globals_", "namespacemembers_"} {
		if strings.HasPrefix(stem, prefix) {
			return true
		}
	}
	return false
}

// UnescapePageName reverses the generator's page name escaping
// Example: "MPILegionArrayStorage__t" -> "MPILegionArrayStorage_t", "partition_8cc" -> "partition.cc"
func UnescapePageName(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}

		next := s[i+1]
		switch {
		case next == '_':
			b.WriteByte('_')
			i++
		case next == '0' && i+2 < len(s):
			if c, ok := pageEscapes[s[i+1:i+3]]; ok {
				b.WriteByte(c)
				i += 2
				continue
			}
			b.WriteByte('_')
		default:
			if c, ok := pageEscapes[string(next)]; ok {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SplitURL splits a target URL into its page and anchor
// Example: "../classfoo.html#a12" -> "classfoo.html", "a12"
func SplitURL(raw string) (page, anchor string) {
	page = raw
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		page, anchor = raw[:i], raw[i+1:]
	}
	page = strings.TrimPrefix(page, "../")
	return page, anchor
}

// ResolveURL makes a target URL absolute.
// Target URLs are relative to the search/ directory of the documentation root.
// Returns raw unchanged when baseURL is empty or either URL does not parse.
func ResolveURL(baseURL, raw string) string {
	if baseURL == "" {
		return raw
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL + "search/")
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

// SplitScope splits a qualified name on "::" outside template brackets and parentheses
// Example: "flecsi::point< a::b >::x" -> ["flecsi", "point< a::b >", "x"]
func SplitScope(scope string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(scope); i++ {
		switch scope[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && i+1 < len(scope) && scope[i+1] == ':' {
				if part := strings.TrimSpace(scope[start:i]); part != "" {
					parts = append(parts, part)
				}
				start = i + 2
				i++
			}
		}
	}
	if part := strings.TrimSpace(scope[start:]); part != "" {
		parts = append(parts, part)
	}
	return parts
}

// BuildBreadcrumb builds the hierarchy trail for a symbol
func BuildBreadcrumb(info PageInfo, name string, member bool) string {
	var parts []string
	if info.Kind == KindFile || info.Kind == KindPage || info.Kind == KindDir || info.Kind == KindGroup {
		if info.Compound != "" {
			parts = append(parts, info.Compound)
		}
	} else {
		parts = SplitScope(info.Compound)
	}

	if member && name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, " > ")
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "from": true, "with": true,
	"const": true, "void": true, "int": true, "std": true, "char": true,
	"bool": true, "auto": true, "typename": true, "unsigned": true,
}

// ExtractKeywords extracts lower-case identifier words from a name and its scope.
// Identifiers are split on punctuation, underscores and camelCase boundaries.
func ExtractKeywords(name, scope string) []string {
	keywordMap := make(map[string]bool)
	for _, word := range splitWords(name + " " + scope) {
		if len(word) > 2 && !stopWords[word] {
			keywordMap[word] = true
		}
	}

	keywords := make([]string, 0, len(keywordMap))
	for word := range keywordMap {
		keywords = append(keywords, word)
	}
	sort.Strings(keywords)

	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}

// splitWords splits text into lower-case words at non-alphanumeric runes and camelCase humps
func splitWords(text string) []string {
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(current) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	return words
}
