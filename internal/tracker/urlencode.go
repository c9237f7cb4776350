package tracker

import "strings"

const hexDigits = "0123456789abcdef"

// EncodeBytes percent-encodes raw bytes for a tracker query string. Only the
// RFC 3986 unreserved characters pass through unchanged.
func EncodeBytes(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for _, c := range b {
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' ||
		c == '.' || c == '~'
}
