package searchdata_test

import (
	"strings"
	"testing"

	"github.com/doxsearch/mcp-server/internal/searchdata"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain lower case", input: "parent", expected: "parent"},
		{name: "upper case folded", input: "PhysicalArray", expected: "physicalarray"},
		{name: "underscore", input: "partition_legion", expected: "partition_5flegion"},
		{name: "file name", input: "partition.cc", expected: "partition_2ecc"},
		{name: "template", input: "point< double, 2 >", expected: "point_3c_20double_2c_202_20_3e"},
		{name: "destructor", input: "~tree", expected: "_7etree"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := searchdata.EncodeKey(tt.input)
			if result != tt.expected {
				t.Errorf("searchdata.EncodeKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "no escapes", input: "parent", expected: "parent"},
		{name: "trailing underscore", input: "pair_5f", expected: "pair_"},
		{name: "template", input: "point_3c_20element_5ft_2c_20dimension_20_3e", expected: "point< element_t, dimension >"},
		{name: "double underscore", input: "exodus_5fdefinition_5f_5f", expected: "exodus_definition__"},
		{name: "truncated escape", input: "pair_5", wantErr: true},
		{name: "bad hex", input: "pair_zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := searchdata.DecodeKey(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("searchdata.DecodeKey(%q) expected error, got %q", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("searchdata.DecodeKey(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("searchdata.DecodeKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	terms := []string{
		"flecsi::topology::mesh_topology_t",
		"operator()",
		"entity_info_t",
		"ünïcode",
	}

	for _, term := range terms {
		decoded, err := searchdata.DecodeKey(searchdata.EncodeKey(term))
		if err != nil {
			t.Fatalf("round trip of %q failed: %v", term, err)
		}
		if decoded != strings.ToLower(term) {
			t.Errorf("round trip of %q = %q", term, decoded)
		}
	}
}
