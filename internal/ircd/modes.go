package ircd

import (
	"fmt"
	"time"

	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/modeset"
)

// ModeChange is one accepted (adding, letter, param) change, either
// requested by a command handler or returned by SetChannelModes/
// SetUserModes as the subset that actually applied.
type ModeChange struct {
	Adding bool
	Letter byte
	Param  string
}

// SetChannelModes applies changes to channel, source naming the acting
// nick for List-category entries' provenance. It is the generic
// generic channel mode-change algorithm: each change is normalized by
// its category's checkSet/checkUnset, vetoed via modepermission-channel-
// <letter>, applied, and announced via modechange-channel-<letter> plus
// a bulk modechanges-channel firing. The Status category defers to
// applyStatusChannel, since it targets a member rather than holding a
// plain parameter.
func (d *IRCd) SetChannelModes(channel *entity.Channel, changes []ModeChange, source string) []ModeChange {
	var applied []ModeChange

	for _, chg := range changes {
		desc, ok := d.Modes.ChannelMode(chg.Letter)
		if !ok {
			continue
		}

		switch desc.Category {
		case modeset.NoParam:
			if a := d.applyNoParamChannel(channel, desc, chg, source); a != nil {
				applied = append(applied, *a)
			}

		case modeset.Param, modeset.ParamOnUnset:
			if a := d.applyParamChannel(channel, desc, chg, source); a != nil {
				applied = append(applied, *a)
			}

		case modeset.List:
			applied = append(applied, d.applyListChannel(channel, desc, chg, source)...)

		case modeset.Status:
			// Status changes target a member by nick; resolve and delegate.
			if target, ok := d.LookupNick(chg.Param); ok {
				if a := d.applyStatusChannel(channel, desc, chg, target, source); a != nil {
					applied = append(applied, *a)
				}
			}
		}
	}

	if len(applied) > 0 {
		d.Actions.RunStandard("modechanges-channel", channel, applied)
	}

	return applied
}

func (d *IRCd) applyNoParamChannel(channel *entity.Channel, desc *modeset.Descriptor, chg ModeChange, source string) *ModeChange {
	_, has := channel.Modes[chg.Letter]
	if has == chg.Adding {
		return nil // already in the requested state
	}

	if !d.Actions.RunAllowed(modePermName("channel", chg.Letter), channel, chg, source) {
		return nil
	}

	if chg.Adding {
		channel.Modes[chg.Letter] = ""
	} else {
		delete(channel.Modes, chg.Letter)
	}

	d.Actions.RunStandard(modeChangeName("channel", chg.Letter), channel, chg)
	return &chg
}

func (d *IRCd) applyParamChannel(channel *entity.Channel, desc *modeset.Descriptor, chg ModeChange, source string) *ModeChange {
	current, has := channel.Modes[chg.Letter]

	if chg.Adding {
		param := chg.Param
		if desc.Impl != nil {
			vals, err := desc.Impl.CheckSet(param)
			if err != nil || len(vals) == 0 {
				return nil
			}
			param = vals[0]
		}
		if has && current == param {
			return nil
		}
		if !d.Actions.RunAllowed(modePermName("channel", chg.Letter), channel, chg, source) {
			return nil
		}
		channel.Modes[chg.Letter] = param
		out := ModeChange{Adding: true, Letter: chg.Letter, Param: param}
		d.Actions.RunStandard(modeChangeName("channel", chg.Letter), channel, out)
		return &out
	}

	if !has {
		return nil
	}
	if desc.Impl != nil {
		if vals, err := desc.Impl.CheckUnset(chg.Param); err != nil || len(vals) == 0 {
			return nil
		}
	}
	if !d.Actions.RunAllowed(modePermName("channel", chg.Letter), channel, chg, source) {
		return nil
	}
	delete(channel.Modes, chg.Letter)
	out := ModeChange{Adding: false, Letter: chg.Letter}
	d.Actions.RunStandard(modeChangeName("channel", chg.Letter), channel, out)
	return &out
}

func (d *IRCd) applyListChannel(channel *entity.Channel, desc *modeset.Descriptor, chg ModeChange, source string) []ModeChange {
	var applied []ModeChange

	if chg.Adding {
		var entries []string
		if desc.ListImpl != nil {
			entries = desc.ListImpl.CheckSet(channel, chg.Param)
		} else {
			entries = []string{chg.Param}
		}

		for _, p := range entries {
			if listContains(channel, chg.Letter, p) {
				continue
			}
			if !d.Actions.RunAllowed(modePermName("channel", chg.Letter), channel, p) {
				continue
			}
			channel.AddListEntry(chg.Letter, entity.ListModeEntry{Param: p, Setter: source, SetAt: time.Now()})
			if chg.Letter == 'b' {
				d.BanMode.OnChange(channel, true, p)
			}
			applied = append(applied, ModeChange{Adding: true, Letter: chg.Letter, Param: p})
			d.Actions.RunStandard(modeChangeName("channel", chg.Letter), channel, applied[len(applied)-1])
		}
		return applied
	}

	var entries []string
	if desc.ListImpl != nil {
		entries = desc.ListImpl.CheckUnset(channel, chg.Param)
	} else {
		entries = []string{chg.Param}
	}

	for _, p := range entries {
		if !channel.RemoveListEntry(chg.Letter, p) {
			continue
		}
		if chg.Letter == 'b' {
			d.BanMode.OnChange(channel, false, p)
		}
		applied = append(applied, ModeChange{Adding: false, Letter: chg.Letter, Param: p})
		d.Actions.RunStandard(modeChangeName("channel", chg.Letter), channel, applied[len(applied)-1])
	}
	return applied
}

func (d *IRCd) applyStatusChannel(channel *entity.Channel, desc *modeset.Descriptor, chg ModeChange, target *entity.User, source string) *ModeChange {
	m, ok := channel.Membership(target.UUID)
	if !ok {
		return nil
	}

	if m.Status[chg.Letter] == chg.Adding {
		return nil
	}

	if !d.Actions.RunAllowed(modePermName("channel", chg.Letter), channel, target, chg) {
		return nil
	}

	if chg.Adding {
		m.Status[chg.Letter] = true
	} else {
		delete(m.Status, chg.Letter)
	}

	out := ModeChange{Adding: chg.Adding, Letter: chg.Letter, Param: target.Nick}
	d.Actions.RunStandard(modeChangeName("channel", chg.Letter), channel, target, out)
	return &out
}

func listContains(channel *entity.Channel, letter byte, param string) bool {
	for _, e := range channel.Lists[letter] {
		if entity.Canonicalize(e.Param) == entity.Canonicalize(param) {
			return true
		}
	}
	return false
}

// SetUserModes applies NoParam changes to u's own mode set (the only
// category the built-in user modes use). Param-category user modes
// would follow the same shape as applyParamChannel, kept separate since
// no built-in user mode currently needs it.
func (d *IRCd) SetUserModes(u *entity.User, changes []ModeChange) []ModeChange {
	var applied []ModeChange

	for _, chg := range changes {
		desc, ok := d.Modes.UserMode(chg.Letter)
		if !ok {
			continue
		}
		if desc.Category != modeset.NoParam {
			continue
		}

		if u.HasMode(chg.Letter) == chg.Adding {
			continue
		}
		if !d.Actions.RunAllowed(modePermName("user", chg.Letter), u, chg) {
			continue
		}

		if chg.Adding {
			u.Modes[chg.Letter] = ""
		} else {
			delete(u.Modes, chg.Letter)
		}

		applied = append(applied, chg)
		d.Actions.RunStandard(modeChangeName("user", chg.Letter), u, chg)
	}

	return applied
}

func modePermName(scope string, letter byte) string {
	return fmt.Sprintf("modepermission-%s-%c", scope, letter)
}

func modeChangeName(scope string, letter byte) string {
	return fmt.Sprintf("modechange-%s-%c", scope, letter)
}
