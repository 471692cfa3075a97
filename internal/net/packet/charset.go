package packet

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// charset is the string encoding of WriteS/ReadS. Set once at startup,
// before any session starts.
var charset encoding.Encoding = unicode.UTF8

// SetCharset selects the wire encoding of strings by WHATWG name
// ("utf-8", "big5", "shift_jis", ...).
func SetCharset(name string) error {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return fmt.Errorf("charset %q: %w", name, err)
	}
	charset = enc
	return nil
}

func encodeString(s string) []byte {
	if isASCII(s) {
		return []byte(s)
	}
	b, err := charset.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s) // fallback to raw bytes
	}
	return b
}

func decodeString(raw []byte) string {
	if isASCII(string(raw)) {
		return string(raw)
	}
	b, err := charset.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(b)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
