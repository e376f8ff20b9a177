// Package rfc is the core module: the RFC 1459/2812 channel and user
// modes (minus the ban/extban mode, which lives in internal/modules/
// banmode) and the baseline set of user commands every client needs
// (NICK, JOIN, PART, PRIVMSG/NOTICE, QUIT, PING/PONG, KICK, TOPIC, MODE,
// WHO, WHOIS, OPER, MOTD, CONNECT). It is always loaded (Core() is true).
// It also carries the matching server-to-server side of each of these
// (UID, NICK, QUIT, JOIN, PART, PRIVMSG/NOTICE, MODE, KICK, TOPIC,
// PING/PONG, SQUIT), so a linked peer's traffic replicates rather than
// being silently dropped on arrival.
package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/modeset"
	"github.com/horgh/ironrelay/internal/module"
)

// Module is the rfc core module. Call HookIRCd with a *ircd.IRCd before
// loading it (the module loader does this as part of its load sequence
// in cmd/ironrelay/main.go).
type Module struct {
	ircd *ircd.IRCd
}

// New constructs an unhooked rfc Module.
func New() *Module {
	return &Module{}
}

func (m *Module) Name() string              { return "rfc" }
func (m *Module) Core() bool                { return true }
func (m *Module) RequiredOnAllServers() bool { return true }

func (m *Module) ChannelModes() []module.ChannelModeSpec {
	return []module.ChannelModeSpec{
		{Letter: 'i', Category: modeset.NoParam},
		{Letter: 'n', Category: modeset.NoParam},
		{Letter: 't', Category: modeset.NoParam},
		{Letter: 'm', Category: modeset.NoParam},
		{Letter: 's', Category: modeset.NoParam},
		{Letter: 'k', Category: modeset.ParamOnUnset, Impl: keyImpl{}},
		{Letter: 'l', Category: modeset.Param, Impl: limitImpl{}},
		{Letter: 'o', Category: modeset.Status, Rank: 100, Symbol: '@'},
		{Letter: 'v', Category: modeset.Status, Rank: 10, Symbol: '+'},
	}
}

func (m *Module) UserModes() []module.UserModeSpec {
	return []module.UserModeSpec{
		{Letter: 'i', Category: modeset.NoParam},
		{Letter: 'o', Category: modeset.NoParam},
		{Letter: 'w', Category: modeset.NoParam},
	}
}

func (m *Module) Actions() []module.ActionSpec {
	return nil
}

func (m *Module) UserCommands() []command.UserCommand {
	return []command.UserCommand{
		&nickCommand{m},
		&joinCommand{m},
		&partCommand{m},
		&messageCommand{mod: m, notice: false},
		&messageCommand{mod: m, notice: true},
		&quitCommand{m},
		&pingCommand{m},
		&pongCommand{m},
		&kickCommand{m},
		&topicCommand{m},
		&modeCommand{m},
		&whoCommand{m},
		&whoisCommand{m},
		&operCommand{m},
		&motdCommand{m},
		&lusersCommand{m},
		&connectCommand{m},
		&klineCommand{m},
	}
}

func (m *Module) ServerCommands() []command.ServerCommand {
	return []command.ServerCommand{
		&uidCommand{m},
		&serverNickCommand{m},
		&serverQuitCommand{m},
		&serverJoinCommand{m},
		&serverPartCommand{m},
		&serverMessageCommand{mod: m, notice: false},
		&serverMessageCommand{mod: m, notice: true},
		&serverModeCommand{m},
		&serverKickCommand{m},
		&serverTopicCommand{m},
		&serverPingCommand{m},
		&serverPongCommand{m},
		&serverSquitCommand{m},
	}
}

func (m *Module) Load() error                                      { return nil }
func (m *Module) Unload() error                                    { return nil }
func (m *Module) FullUnload() error                                { return nil }
func (m *Module) Rehash() error                                    { return nil }
func (m *Module) VerifyConfig(raw map[string]interface{}) error    { return nil }

// HookIRCd binds the module to the daemon handle, as the module
// loader requires before Load runs.
func (m *Module) HookIRCd(i interface{}) {
	m.ircd = i.(*ircd.IRCd)
}
