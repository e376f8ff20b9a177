// Package wire implements line-oriented encoding and decoding of the IRC
// wire protocol, including IRCv3 message tags.
package wire

import (
	"fmt"
	"strings"
)

// MaxLineLength is the maximum protocol message line length Encode
// produces, not counting the trailing CRLF. This limit excludes any
// leading @tags segment, which IRCv3 permits to extend beyond it.
const MaxLineLength = 512

// MaxTagLength is the maximum length IRCv3 allows for the tags section,
// including the leading '@' and trailing space.
const MaxTagLength = 8191

// ErrTruncated is returned by Encode when the encoded message had to be
// cut short to fit MaxLineLength. The returned string is still usable.
var ErrTruncated = fmt.Errorf("message truncated")

// Message holds a single decoded (or to-be-encoded) IRC protocol message.
//
// See RFC 1459/2812 section 2.3.1, and the IRCv3 message-tags
// specification for Tags.
type Message struct {
	// Tags holds IRCv3 client/server message tags. May be nil.
	Tags map[string]string

	// Prefix may be blank. It is optional.
	Prefix string

	// Command is the IRC command, e.g. PRIVMSG. May be a 3 digit numeric.
	Command string

	// Params holds at most 15 parameters.
	Params []string
}

func (m Message) String() string {
	return fmt.Sprintf("Tags%v Prefix [%s] Command [%s] Params%q", m.Tags,
		m.Prefix, m.Command, m.Params)
}

// SourceNick retrieves the nickname portion of the prefix, if any. It is
// valid for this to be blank, as not every message carries a prefix.
func (m Message) SourceNick() string {
	idx := strings.Index(m.Prefix, "!")
	if idx == -1 {
		return ""
	}
	return m.Prefix[:idx]
}
