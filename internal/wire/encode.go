package wire

import (
	"fmt"
	"strings"
)

// Encode renders m as a single IRC protocol line, without a trailing
// \r\n. If the encoded line (excluding any tags segment) would exceed
// MaxLineLength, it is truncated to fit and ErrTruncated is returned
// along with the truncated (but still usable) line.
func (m Message) Encode() (string, error) {
	var body strings.Builder

	if len(m.Prefix) > 0 {
		body.WriteString(":")
		body.WriteString(m.Prefix)
		body.WriteString(" ")
	}

	body.WriteString(m.Command)

	for i, param := range m.Params {
		body.WriteString(" ")

		last := i == len(m.Params)-1
		if last && needsColon(param) {
			body.WriteString(":")
		}
		body.WriteString(param)
	}

	line := body.String()

	var truncErr error
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength]
		truncErr = ErrTruncated
	}

	if len(m.Tags) == 0 {
		return line, truncErr
	}

	tagBlob := encodeTags(m.Tags)
	full := fmt.Sprintf("@%s %s", tagBlob, line)
	return full, truncErr
}

// needsColon reports whether param must be prefixed with ':' when it is
// the final (trailing) parameter: it is empty, contains a space, or
// itself begins with ':'.
func needsColon(param string) bool {
	if len(param) == 0 {
		return true
	}
	if strings.Contains(param, " ") {
		return true
	}
	if strings.HasPrefix(param, ":") {
		return true
	}
	return false
}

func encodeTags(tags map[string]string) string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		if len(v) == 0 {
			pairs = append(pairs, k)
			continue
		}
		pairs = append(pairs, k+"="+escapeTagValue(v))
	}
	return strings.Join(pairs, ";")
}

func escapeTagValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ';':
			b.WriteString(`\:`)
		case ' ':
			b.WriteString(`\s`)
		case '\\':
			b.WriteString(`\\`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
