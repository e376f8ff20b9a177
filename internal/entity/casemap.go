package entity

import "strings"

// Canonicalize converts s to its canonical (case-folded) representation
// for use as a map key. It implements RFC 1459's "irc-lowercase"
// casemapping: in addition to ASCII a-z/A-Z, the characters {, }, | and ^
// are treated as the lowercase forms of [, ], \ and ~ respectively.
//
// Every lookup of a nick or channel name by string must go through this
// function so that the two casings collide in the same map bucket.
func Canonicalize(s string) string {
	b := []byte(strings.ToLower(s))
	for i, c := range b {
		switch c {
		case '[':
			b[i] = '{'
		case ']':
			b[i] = '}'
		case '\\':
			b[i] = '|'
		case '~':
			b[i] = '^'
		}
	}
	return string(b)
}

// CanonicalizeNick is an alias of Canonicalize for nick lookups.
func CanonicalizeNick(n string) string {
	return Canonicalize(n)
}

// CanonicalizeChannel is an alias of Canonicalize for channel name
// lookups. Channel names are case-insensitive like nicks but the '#'
// prefix is left untouched, since it folds to itself anyway.
func CanonicalizeChannel(c string) string {
	return Canonicalize(c)
}
