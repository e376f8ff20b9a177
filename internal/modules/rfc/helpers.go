package rfc

import (
	"strings"

	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
)

// prefixFor renders u's hostmask prefix for messages u originates.
func prefixFor(u *entity.User) string {
	return u.Nick + "!" + u.Ident + "@" + u.Host.Display
}

// highestRank returns the rank of the highest-privilege status mode m
// holds in statusOrder (rank-descending), or -1 if the member holds no
// status at all.
func highestRank(d *ircd.IRCd, m *entity.Membership) int {
	for _, letter := range d.Modes.StatusOrder() {
		if m.Status[letter] {
			return d.Modes.StatusRank(letter)
		}
	}
	return -1
}

// splitCSV splits a comma-separated param, dropping empty entries.
func splitCSV(s string) []string {
	if len(s) == 0 {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// wrapMOTDLines wraps motd's lines to width, mirroring the welcome
// burst's own MOTD wrapping so MOTD replies the command gives on demand
// look identical to the one sent at registration.
func wrapMOTDLines(motd string, width int) []string {
	if width <= 0 {
		width = 80
	}
	var lines []string
	for _, line := range strings.Split(motd, "\n") {
		for len(line) > width {
			lines = append(lines, line[:width])
			line = line[width:]
		}
		lines = append(lines, line)
	}
	return lines
}
