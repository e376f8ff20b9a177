package entity

import "fmt"

// maxTS6Sequence is the number of distinct TS6-style IDs a single server
// can hand out in one run: the first character is [A-Z] (26 values), the
// remaining 5 are [A-Z0-9] (36 values each).
const maxTS6Sequence = 26 * 36 * 36 * 36 * 36 * 36

// ServerID is a short, stable, network-unique token identifying a
// server, e.g. "1AB". Chosen by configuration, not generated.
type ServerID string

// UserID is a stable, server-unique token identifying a user connection,
// TS6-style: a ServerID followed by a 6 character base36 sequence, e.g.
// "1ABAAAAAA".
type UserID string

// NextUserID generates the UserID for the seq'th connection registered
// on this server since startup (seq is 0 for the first). It returns an
// error once seq exceeds the address space a single run can exhaust.
func NextUserID(server ServerID, seq uint64) (UserID, error) {
	token, err := ts6Token(seq)
	if err != nil {
		return "", err
	}
	return UserID(string(server) + token), nil
}

// ts6Token renders seq as a 6 character [A-Z][A-Z0-9]{5} token.
func ts6Token(seq uint64) (string, error) {
	if seq >= maxTS6Sequence {
		return "", fmt.Errorf("sequence %d exceeds TS6 ID space", seq)
	}

	token := []byte("AAAAAA")

	n := seq
	for pos := 5; pos >= 0; pos-- {
		rem := n % 36
		token[pos] = base36Digit(rem)
		n /= 36
		if n == 0 {
			break
		}
	}

	return string(token), nil
}

// base36Digit renders rem (0-35) as 'A'-'Z' then '0'-'9'.
func base36Digit(rem uint64) byte {
	if rem >= 26 {
		return byte(rem-26) + '0'
	}
	return byte(rem) + 'A'
}
