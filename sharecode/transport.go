package sharecode

import (
	"encoding/base64"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const upperHex = "0123456789ABCDEF"

// EncodeTransport percent-escapes the payload the way encodeURIComponent
// does and wraps the result in standard base64, so the code only contains
// [A-Za-z0-9+/=].
func EncodeTransport(payload []byte) string {
	var b strings.Builder
	b.Grow(len(payload) * 3)
	for _, c := range payload {
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

// DecodeTransport reverses EncodeTransport. Whitespace picked up by
// messengers is ignored and missing base64 padding is tolerated.
func DecodeTransport(code string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
	if compact == "" {
		return nil, &MalformedCodeError{Stage: "empty"}
	}

	raw, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		var errRaw error
		if raw, errRaw = base64.RawStdEncoding.DecodeString(compact); errRaw != nil {
			return nil, &MalformedCodeError{Stage: "base64", Err: err}
		}
	}

	// PathUnescape keeps '+' literal, matching decodeURIComponent.
	text, err := url.PathUnescape(string(raw))
	if err != nil {
		return nil, &MalformedCodeError{Stage: "percent-decoding", Err: err}
	}
	if !utf8.ValidString(text) {
		return nil, &MalformedCodeError{Stage: "utf-8"}
	}
	return []byte(text), nil
}

func unreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
