package modeset

import (
	"strings"

	"github.com/horgh/ironrelay/internal/entity"
)

// ActionRunner is the subset of the action bus the extban engine needs:
// delegating matching extbans to "usermatchban-<letter>" handlers.
//
// This is a narrow interface (rather than importing internal/action
// directly) so modeset has no dependency on the action bus package;
// internal/ircd wires a concrete action.Bus in at startup.
type ActionRunner interface {
	// RunUntilTrue invokes handlers for name in priority order until one
	// returns true, then stops and returns true. Returns false if none do.
	RunUntilTrue(name string, args ...interface{}) bool
}

// BanMode implements the channel 'b' mode: a List-category mode whose
// entries are either plain hostmask bans or "extbans" — either a
// matching extban that delegates the match test to another module, or
// an action extban that auto-applies another mode's effect to whichever
// members match, without itself blocking them.
//
// Grammar:
//
//	banparam  := [action_ext ";"] matchpart
//	action_ext := ["~"] letter [":" modeparam]
//	matchpart := [["~"] letter ":"] hostmask
//	hostmask  := nick "!" ident "@" host, with '*'/'?' wildcards
type BanMode struct {
	Registry *Registry
	Actions  ActionRunner
}

// NewBanMode constructs a BanMode bound to a mode registry (for
// checkSet/checkUnset delegation to action-extban target modes) and an
// action runner (for matching-extban delegation).
func NewBanMode(registry *Registry, actions ActionRunner) *BanMode {
	return &BanMode{Registry: registry, Actions: actions}
}

// parsedBan is one "action_ext;matchpart"-shaped ban entry split into
// its constituent pieces. Any piece may be empty.
type parsedBan struct {
	// ActionExtban is the letter of the mode to auto-apply, or "" for a
	// plain ban.
	ActionExtban string
	// ActionNegated is whether ActionExtban was "~"-prefixed.
	ActionNegated bool
	// ActionParam is the mode's own parameter, e.g. for +q style modes.
	ActionParam string

	// MatchExtban is the letter of a matching extban to delegate to, or
	// "" to match banMask as a plain hostmask.
	MatchExtban string
	// MatchNegated is whether MatchExtban was "~"-prefixed.
	MatchNegated bool

	// HostMask is the literal (or matching-extban) mask text.
	HostMask string
}

// parseBan splits a raw ban param into its pieces, per the grammar
// above. It does not validate the pieces; callers check emptiness.
func parseBan(param string) parsedBan {
	var p parsedBan

	rest := param
	if idx := strings.Index(rest, ";"); idx != -1 {
		p.ActionExtban = rest[:idx]
		rest = rest[idx+1:]

		if idx := strings.Index(p.ActionExtban, ":"); idx != -1 {
			p.ActionParam = p.ActionExtban[idx+1:]
			p.ActionExtban = p.ActionExtban[:idx]
		}

		if strings.HasPrefix(p.ActionExtban, "~") {
			p.ActionNegated = true
			p.ActionExtban = p.ActionExtban[1:]
		}
	}

	if hasMatchingExtbanPrefix(rest) {
		idx := strings.Index(rest, ":")
		p.MatchExtban = rest[:idx]
		rest = rest[idx+1:]

		if strings.HasPrefix(p.MatchExtban, "~") {
			p.MatchNegated = true
			p.MatchExtban = p.MatchExtban[1:]
		}
	}

	p.HostMask = rest
	return p
}

// hasMatchingExtbanPrefix reports whether s begins with a "letter:" or
// "~letter:" matching-extban prefix, i.e. it has a ':' that occurs
// before any '@' (or there is no '@' at all).
func hasMatchingExtbanPrefix(s string) bool {
	colon := strings.Index(s, ":")
	if colon == -1 {
		return false
	}
	at := strings.Index(s, "@")
	return at == -1 || colon < at
}

// BanMatchesUser reports whether a single ban entry's match portion
// (ignoring any leading action-extban prefix) matches user.
func (b *BanMode) BanMatchesUser(user *entity.User, banmask string) bool {
	p := parseBan(withoutActionPrefix(banmask))

	if p.MatchExtban != "" {
		matched := b.Actions.RunUntilTrue("usermatchban-"+p.MatchExtban, user, p.MatchNegated, p.HostMask)
		return matched
	}

	return b.MatchHostmask(user, p.HostMask)
}

// withoutActionPrefix strips a leading "action_ext;" segment, if any,
// leaving just the matchpart.
func withoutActionPrefix(banmask string) string {
	if idx := strings.Index(banmask, ";"); idx != -1 {
		return banmask[idx+1:]
	}
	return banmask
}

// MatchHostmask checks banmask (already stripped of any action prefix
// and matching-extban prefix) against all three hostmask forms of user.
func (b *BanMode) MatchHostmask(user *entity.User, banmask string) bool {
	banmask = entity.Canonicalize(banmask)

	forms := []string{
		hostmaskString(user.Nick, user.Ident, user.Host.Display),
		hostmaskString(user.Nick, user.Ident, user.Host.Real),
		hostmaskString(user.Nick, user.Ident, user.Host.IP),
	}

	for _, form := range forms {
		if matchWildcard(entity.Canonicalize(form), banmask) {
			return true
		}
	}
	return false
}

func hostmaskString(nick, ident, host string) string {
	return nick + "!" + ident + "@" + host
}

// matchWildcard implements shell-style '*'/'?' glob matching, the
// wildcard syntax IRC hostmasks use (fnmatch in the original).
func matchWildcard(s, pattern string) bool {
	return matchWildcardBytes([]byte(s), []byte(pattern))
}

func matchWildcardBytes(s, pattern []byte) bool {
	var si, pi, star, match int
	star = -1

	for si < len(s) {
		if pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]) {
			si++
			pi++
			continue
		}
		if pi < len(pattern) && pattern[pi] == '*' {
			star = pi
			match = si
			pi++
			continue
		}
		if star != -1 {
			pi = star + 1
			match++
			si = match
			continue
		}
		return false
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}

	return pi == len(pattern)
}

// PopulateBanCache fills in a member's ban cache (spec I7) from the
// channel's current 'b' list. It is called when the user joins
// (IRCd.JoinChannel).
func (b *BanMode) PopulateBanCache(channel *entity.Channel, m *entity.Membership) {
	entries, ok := channel.Lists['b']
	if !ok {
		return
	}

	if m.Bans == nil {
		m.Bans = map[string]bool{}
	}

	for _, entry := range entries {
		p := parseBan(entry.Param)
		if _, already := m.Bans[p.ActionExtban]; already {
			continue
		}
		if b.BanMatchesUser(m.User, entry.Param) {
			m.Bans[p.ActionExtban] = true
		}
	}
}

// OnChange updates every member's ban cache in response to a single +b
// or -b change, per spec I7 / the "updateuserbancache" action.
func (b *BanMode) OnChange(channel *entity.Channel, adding bool, param string) {
	p := parseBan(param)

	for _, m := range channel.Users {
		if m.Bans == nil {
			m.Bans = map[string]bool{}
		}

		_, cached := m.Bans[p.ActionExtban]
		if !cached && !adding {
			continue
		}
		if cached && adding {
			continue
		}

		matches := b.BanMatchesUser(m.User, param)
		if !matches {
			continue
		}

		if adding {
			m.Bans[p.ActionExtban] = true
		} else {
			delete(m.Bans, p.ActionExtban)
		}
	}
}

// MatchBans recomputes (without consulting the cache) which action-extban
// keys match user against channel's current ban list. Used when a
// member's cache is not yet authoritative.
func (b *BanMode) MatchBans(user *entity.User, channel *entity.Channel) map[string]bool {
	entries, ok := channel.Lists['b']
	if !ok {
		return map[string]bool{}
	}

	out := map[string]bool{}
	for _, entry := range entries {
		p := parseBan(entry.Param)
		if _, already := out[p.ActionExtban]; already {
			continue
		}
		if b.BanMatchesUser(user, entry.Param) {
			out[p.ActionExtban] = true
		}
	}
	return out
}

// AutoStatus returns the status mode letters, in rank-descending order,
// that a member's ban cache grants automatically (e.g. a +b entry
// "o;~a:*!*@trusted.host" auto-ops matching joiners). The caller,
// IRCd.JoinChannel, sets these directly on the membership rather than
// through SetChannelModes, so no modepermission/modechange actions fire
// for them.
func (b *BanMode) AutoStatus(m *entity.Membership) []byte {
	if len(m.Bans) == 0 {
		return nil
	}

	var out []byte
	for _, letter := range b.Registry.StatusOrder() {
		if m.Bans[string(letter)] {
			out = append(out, letter)
		}
	}
	return out
}

// CheckJoinPermission reports whether user is denied from joining
// channel by a plain (non-action) ban entry.
func (b *BanMode) CheckJoinPermission(channel *entity.Channel, user *entity.User) (denied bool) {
	entries, ok := channel.Lists['b']
	if !ok {
		return false
	}

	for _, entry := range entries {
		if strings.Contains(entry.Param, ";") {
			continue // action extbans never block joins by themselves
		}
		if b.BanMatchesUser(user, entry.Param) {
			return true
		}
	}
	return false
}

// CheckMessagePermission reports whether a non-member user is denied
// from messaging channel by a plain ban entry.
func (b *BanMode) CheckMessagePermission(channel *entity.Channel, user *entity.User) (denied bool) {
	return b.CheckJoinPermission(channel, user)
}
