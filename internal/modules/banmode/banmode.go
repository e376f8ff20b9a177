// Package banmode wires the channel 'b' (ban) mode backed by
// internal/modeset's extban engine into the module system. The engine
// itself lives on the daemon handle (internal/ircd constructs it ahead
// of module loading, since other modules need a BanMode instance to
// build their own mode descriptors against); this module registers the
// 'b' mode descriptor plus the action handlers that let join/message
// enforcement go through the action bus instead of calling BanMode
// directly.
package banmode

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/modeset"
	"github.com/horgh/ironrelay/internal/module"
)

// Module is the banmode module.
type Module struct {
	ircd *ircd.IRCd
}

// New constructs an unhooked banmode Module.
func New() *Module {
	return &Module{}
}

func (m *Module) Name() string              { return "banmode" }
func (m *Module) Core() bool                { return false }
func (m *Module) RequiredOnAllServers() bool { return true }

func (m *Module) ChannelModes() []module.ChannelModeSpec {
	return []module.ChannelModeSpec{
		{Letter: 'b', Category: modeset.List, ListImpl: m.ircd.BanMode},
	}
}

func (m *Module) UserModes() []module.UserModeSpec { return nil }

func (m *Module) Actions() []module.ActionSpec {
	return []module.ActionSpec{
		{Name: "joinpermission", Priority: 10, Handler: m.checkJoinPermission},
		{Name: "commandmodify-PRIVMSG", Priority: 10, Handler: m.checkMessagePermission},
		{Name: "commandmodify-NOTICE", Priority: 10, Handler: m.checkMessagePermission},
		{Name: "modeactioncheck-channel-withuser", Priority: 10, Handler: m.checkWithUser},
	}
}

func (m *Module) UserCommands() []command.UserCommand     { return nil }
func (m *Module) ServerCommands() []command.ServerCommand { return nil }

func (m *Module) Load() error                                   { return nil }
func (m *Module) Unload() error                                 { return nil }
func (m *Module) FullUnload() error                              { return nil }
func (m *Module) Rehash() error                                  { return nil }
func (m *Module) VerifyConfig(raw map[string]interface{}) error { return nil }

// HookIRCd binds the module to the daemon handle.
func (m *Module) HookIRCd(i interface{}) {
	m.ircd = i.(*ircd.IRCd)
}

// checkJoinPermission is the "joinpermission" veto gate: called with
// (channel, user), it returns false to deny the join when a plain +b
// entry matches the joiner.
func (m *Module) checkJoinPermission(args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	ch, ok := args[0].(*entity.Channel)
	user, ok2 := args[1].(*entity.User)
	if !ok || !ok2 {
		return nil
	}
	if m.ircd.BanMode.CheckJoinPermission(ch, user) {
		return false
	}
	return nil
}

// checkMessagePermission is the "commandmodify-PRIVMSG"/
// "commandmodify-NOTICE" veto gate: called with (channel, user) for a
// non-member sender, it returns false to strip that channel from the
// message's targets when a plain +b entry matches the sender.
func (m *Module) checkMessagePermission(args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	ch, ok := args[0].(*entity.Channel)
	user, ok2 := args[1].(*entity.User)
	if !ok || !ok2 {
		return nil
	}
	if m.ircd.BanMode.CheckMessagePermission(ch, user) {
		return false
	}
	return nil
}

// checkWithUser is "modeactioncheck-channel-withuser": called with
// (channel, letter, user), it answers whether user is currently
// restricted under the status/action-extban letter in channel, using
// the member's ban cache when one exists and falling back to a fresh
// ban-list walk otherwise. Other modules use this to ask "is this user
// restricted under mode X here?" without reaching into +b internals.
func (m *Module) checkWithUser(args ...interface{}) interface{} {
	if len(args) < 3 {
		return nil
	}
	ch, ok := args[0].(*entity.Channel)
	letter, ok2 := args[1].(byte)
	user, ok3 := args[2].(*entity.User)
	if !ok || !ok2 || !ok3 {
		return nil
	}

	if mem, isMember := ch.Membership(user.UUID); isMember && mem.Bans != nil {
		if v, cached := mem.Bans[string(letter)]; cached {
			return v
		}
	}

	return m.ircd.BanMode.MatchBans(user, ch)[string(letter)]
}
