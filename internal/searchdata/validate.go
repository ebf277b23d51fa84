package searchdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Severity of a validation finding
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// MarshalText lets Severity serialize as "error"/"warning"
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Problem is a single validation finding
type Problem struct {
	Severity Severity `json:"severity"`
	Shard    string   `json:"shard,omitempty"`
	Entry    int      `json:"entry"` // Index of the entry in the shard, -1 for shard-level findings
	Key      string   `json:"key,omitempty"`
	Path     string   `json:"path,omitempty"` // JSON path, set by schema validation
	Message  string   `json:"message"`
}

func (p Problem) String() string {
	var b strings.Builder
	b.WriteString(p.Severity.String())
	if p.Shard != "" {
		b.WriteString(" " + p.Shard)
	}
	if p.Entry >= 0 {
		fmt.Fprintf(&b, "[%d]", p.Entry)
	}
	if p.Key != "" {
		fmt.Fprintf(&b, " %q", p.Key)
	}
	if p.Path != "" {
		b.WriteString(" at " + p.Path)
	}
	b.WriteString(": " + p.Message)
	return b.String()
}

// HasErrors reports whether any problem has error severity
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the structural properties of a shard:
// non-empty keys and labels, non-empty target lists, valid anchor fragments,
// decodable keys and keys that belong to the shard's first character.
// Duplicate keys are reported as warnings; the generator repeats a key for a
// class and its constructors. sections may be nil.
func Validate(shard *Shard, sections Sections) []Problem {
	var problems []Problem
	report := func(sev Severity, i int, key, format string, args ...any) {
		problems = append(problems, Problem{
			Severity: sev,
			Shard:    shard.Name,
			Entry:    i,
			Key:      key,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	expected := rune(0)
	if sections != nil && shard.Category != "" && shard.Section >= 0 {
		if r, ok := sections.CharAt(shard.Category, shard.Section); ok {
			expected = r
		} else {
			report(SeverityError, -1, "", "section %d of %q is not listed in %s", shard.Section, shard.Category, SectionsFile)
		}
	}
	if expected == 0 && len(shard.Entries) > 0 {
		expected = bucketRune(shard.Entries[0].Key)
	}

	seen := make(map[string]int, len(shard.Entries))
	for i, e := range shard.Entries {
		if e.Key == "" {
			report(SeverityError, i, "", "empty key")
		} else if _, err := DecodeKey(e.Key); err != nil {
			report(SeverityError, i, e.Key, "key does not decode: %v", err)
		} else if r := bucketRune(e.Key); expected != 0 && r != expected {
			report(SeverityError, i, e.Key, "key starts with %q but shard holds %q", r, expected)
		}

		if strings.TrimSpace(e.Display) == "" {
			report(SeverityError, i, e.Key, "empty display label")
		}

		if len(e.Targets) == 0 {
			report(SeverityError, i, e.Key, "no targets")
		}
		for j, t := range e.Targets {
			if err := ValidateTargetURL(t.URL); err != nil {
				report(SeverityError, i, e.Key, "target %d: %v", j, err)
			}
		}

		if prev, ok := seen[e.Key]; ok && e.Key != "" {
			report(SeverityWarning, i, e.Key, "duplicate key (first seen at entry %d)", prev)
		} else {
			seen[e.Key] = i
		}
	}

	return problems
}

// ValidateTargetURL checks that url is a non-empty reference whose anchor,
// if present, is a valid URL fragment
func ValidateTargetURL(raw string) error {
	if raw == "" {
		return errors.New("empty url")
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return fmt.Errorf("url %q contains whitespace", raw)
	}
	if _, err := url.Parse(raw); err != nil {
		return fmt.Errorf("url %q does not parse: %w", raw, err)
	}

	i := strings.IndexByte(raw, '#')
	if i < 0 {
		return nil
	}
	if i == 0 {
		return fmt.Errorf("url %q has an anchor but no page", raw)
	}
	fragment := raw[i+1:]
	if fragment == "" {
		return fmt.Errorf("url %q has an empty anchor", raw)
	}
	if !ValidFragment(fragment) {
		return fmt.Errorf("anchor %q is not a valid URL fragment", fragment)
	}
	return nil
}

// ValidFragment reports whether s matches the RFC 3986 fragment grammar:
// fragment = *( pchar / "/" / "?" ) with percent-encoding checked.
func ValidFragment(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("-._~!$&'()*+,;=:@/?", c) >= 0:
		case c == '%':
			if i+2 >= len(s) {
				return false
			}
			if _, ok := unhex(s[i+1]); !ok {
				return false
			}
			if _, ok := unhex(s[i+2]); !ok {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

//go:embed shard.schema.json
var shardSchema []byte

const shardSchemaURL = "https://doxsearch.dev/schemas/shard.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(shardSchema))
		if err != nil {
			schemaErr = fmt.Errorf("invalid embedded shard schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(shardSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to add shard schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(shardSchemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateJSON validates the canonical JSON form of a shard against the
// embedded JSON Schema. Schema violations are returned as problems; the
// error is reserved for failures to run the validation itself.
func ValidateJSON(shard *Shard) ([]Problem, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(shard)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shard: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode shard JSON: %w", err)
	}

	err = schema.Validate(instance)
	if err == nil {
		return nil, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return schemaProblems(shard, validationErr), nil
}

// schemaProblems flattens a validation error tree into its leaf findings
func schemaProblems(shard *Shard, validationErr *jsonschema.ValidationError) []Problem {
	if len(validationErr.Causes) > 0 {
		var problems []Problem
		for _, cause := range validationErr.Causes {
			problems = append(problems, schemaProblems(shard, cause)...)
		}
		return problems
	}

	path := "$"
	if len(validationErr.InstanceLocation) > 0 {
		path = "$." + strings.Join(validationErr.InstanceLocation, ".")
	}

	problem := Problem{
		Severity: SeverityError,
		Shard:    shard.Name,
		Entry:    -1,
		Path:     path,
		Message:  validationErr.Error(),
	}
	if loc := validationErr.InstanceLocation; len(loc) >= 2 && loc[0] == "entries" {
		var idx int
		if _, err := fmt.Sscanf(loc[1], "%d", &idx); err == nil && idx < len(shard.Entries) {
			problem.Entry = idx
			problem.Key = shard.Entries[idx].Key
		}
	}

	return []Problem{problem}
}
