package modeset

import (
	"strings"

	"github.com/horgh/ironrelay/internal/entity"
)

// CheckSet validates and canonicalizes a comma-separated list of ban
// params being added to +b. Each matchpart without an '!' gets "!*@*"
// appended, and without an '@' gets "@*" appended, so stored bans are
// always directly matchable hostmasks. An entry with an action-extban
// prefix is stored as "letter:param;matchpart", its matchpart
// canonicalized the same way; a leading "~" on the action letter is not
// kept.
//
// An action-extban prefix ("letter;" or "letter:param;") is validated
// against the target mode's own category: List target modes are
// rejected, Status target modes are accepted without a parameter (no
// rank is checked for them here or when they are applied), and for the
// other categories the target mode's own CheckSet, when it has one, is
// invoked to canonicalize actionParam.
func (b *BanMode) CheckSet(channel *entity.Channel, param string) []string {
	var out []string

	for _, full := range strings.Split(param, ",") {
		entry := full

		if idx := strings.Index(entry, ";"); idx != -1 {
			actionExtban := entry[:idx]
			matchpart := entry[idx+1:]

			if actionExtban == "" || matchpart == "" {
				continue
			}

			actionParam := ""
			if ci := strings.Index(actionExtban, ":"); ci != -1 {
				actionParam = actionExtban[ci+1:]
				actionExtban = actionExtban[:ci]
			}

			negated := strings.HasPrefix(actionExtban, "~")
			letter := actionExtban
			if negated {
				letter = letter[1:]
			}

			desc, ok := b.Registry.ChannelMode(letter[0])
			if !ok || desc.Category == List {
				continue
			}
			if actionParam != "" && (desc.Category == NoParam || desc.Category == Status) {
				continue
			}
			if actionParam == "" && desc.Category == ParamOnUnset {
				continue
			}
			if !negated && actionParam == "" && desc.Category == Param {
				continue
			}

			if desc.Category != Status && desc.Impl != nil {
				rewritten, err := desc.Impl.CheckSet(actionParam)
				if err != nil || len(rewritten) == 0 {
					continue
				}
				actionParam = rewritten[0]
			}

			updated := letter + ":" + actionParam + ";" + canonicalizeMatchpart(matchpart)
			out = append(out, updated)
			continue
		}

		out = append(out, canonicalizeMatchpart(entry))
	}

	return out
}

// CheckUnset validates a comma-separated list of ban params being
// removed from +b, matching existing entries case-insensitively.
func (b *BanMode) CheckUnset(channel *entity.Channel, param string) []string {
	var out []string

	existing := channel.Lists['b']

	for _, full := range strings.Split(param, ",") {
		candidate := full
		if idx := strings.Index(candidate, ";"); idx == -1 {
			candidate = canonicalizeMatchpart(candidate)
		}

		lower := entity.Canonicalize(candidate)
		found := false
		for _, e := range existing {
			if entity.Canonicalize(e.Param) == lower {
				out = append(out, e.Param)
				found = true
				break
			}
		}
		if !found {
			out = append(out, candidate)
		}
	}

	return out
}

// canonicalizeMatchpart appends a default ident/host wildcard to a
// matchpart lacking one, leaving any matching-extban prefix untouched.
func canonicalizeMatchpart(matchpart string) string {
	check := matchpart
	if hasMatchingExtbanPrefix(matchpart) {
		idx := strings.Index(matchpart, ":")
		check = matchpart[idx+1:]
	}

	if !strings.Contains(check, "!") {
		return matchpart + "!*@*"
	}
	if !strings.Contains(check, "@") {
		return matchpart + "@*"
	}
	return matchpart
}
