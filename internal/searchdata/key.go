package searchdata

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// EncodeKey converts a search term into the id form used as shard keys.
// The term is lower-cased; bytes in [a-z0-9] are kept and every other byte
// becomes '_' followed by two lower-case hex digits.
// Example: "Partition_Legion" -> "partition_5flegion"
func EncodeKey(term string) string {
	term = strings.ToLower(term)

	var b strings.Builder
	b.Grow(len(term))
	for i := 0; i < len(term); i++ {
		c := term[i]
		if isKeyByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('_')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// DecodeKey reverses EncodeKey.
// Example: "point_3c_20double_2c_202_20_3e" -> "point< double, 2 >"
func DecodeKey(key string) (string, error) {
	if !strings.Contains(key, "_") {
		return key, nil
	}

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c != '_' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(key) {
			return "", fmt.Errorf("truncated escape at offset %d in key %q", i, key)
		}
		hi, ok1 := unhex(key[i+1])
		lo, ok2 := unhex(key[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape %q at offset %d in key %q", key[i:i+3], i, key)
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

// firstRune returns the first decoded character of key, or 0 if it does not decode
func firstRune(key string) rune {
	decoded, err := DecodeKey(key)
	if err != nil || decoded == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(decoded)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

func isKeyByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
