// Package connlimit implements a network-wide, per-IP connection cap
// (connlimit_globmax), distinct from internal/listener's per-peer-process
// accept-time limiter: this module counts every registered user by
// host IP and disconnects a newly registered user once their IP's count
// exceeds the configured maximum.
package connlimit

import (
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/module"
)

// Module is the global connection-limit module.
type Module struct {
	ircd *ircd.IRCd

	// counts tracks live registered users per host IP. Keyed the same way
	// as listener.PeerLimiter, but counting registrations rather than raw
	// accepted sockets, and surviving a nick change or IP update via the
	// onChangeIP handler's decrement-old/increment-new resolution.
	counts map[string]int
}

// New constructs an unhooked connlimit Module.
func New() *Module {
	return &Module{counts: map[string]int{}}
}

func (m *Module) Name() string              { return "connlimit" }
func (m *Module) Core() bool                { return false }
func (m *Module) RequiredOnAllServers() bool { return false }

func (m *Module) ChannelModes() []module.ChannelModeSpec { return nil }
func (m *Module) UserModes() []module.UserModeSpec       { return nil }

func (m *Module) Actions() []module.ActionSpec {
	return []module.ActionSpec{
		{Name: "userconnect", Priority: 0, Handler: m.onConnect},
		{Name: "remoteregister", Priority: 0, Handler: m.onRemoteConnect},
		{Name: "quit", Priority: 0, Handler: m.onQuit},
		{Name: "remotequit", Priority: 0, Handler: m.onQuit},
		{Name: "changeipaddress", Priority: 0, Handler: m.onChangeIP},
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

// onConnect increments u's IP count and, once it exceeds the configured
// global maximum, closes u's connection. Run as an action.Handler
// (action.Bus calls handlers synchronously from within RegisterUser), so
// the kill happens immediately after registration completes rather than
// on a later tick.
func (m *Module) onConnect(args ...interface{}) interface{} {
	u, ok := args[0].(*entity.User)
	if !ok {
		return nil
	}

	ip := u.Host.IP
	m.counts[ip]++

	max := m.ircd.Config.ConnlimitGlobalMax
	if max <= 0 || m.whitelisted(ip) {
		return nil
	}

	if m.counts[ip] > max {
		m.ircd.CloseUser(u, "Too many connections from your host")
	}

	return nil
}

// onRemoteConnect tracks a remote user's IP against the same global
// count as a local one, but never closes the connection: this server
// has no local socket for a remote user, so enforcement against an
// over-quota IP stays with the user's origin server.
func (m *Module) onRemoteConnect(args ...interface{}) interface{} {
	u, ok := args[0].(*entity.User)
	if !ok {
		return nil
	}
	m.counts[u.Host.IP]++
	return nil
}

func (m *Module) onQuit(args ...interface{}) interface{} {
	u, ok := args[0].(*entity.User)
	if !ok {
		return nil
	}
	m.decrement(u.Host.IP)
	return nil
}

// onChangeIP applies the decrement-old/increment-new resolution for a
// user whose host IP changes post-registration (e.g. after a vhost or
// cloak update): args are (user, oldIP).
func (m *Module) onChangeIP(args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	u, ok := args[0].(*entity.User)
	if !ok {
		return nil
	}
	oldIP, _ := args[1].(string)

	m.decrement(oldIP)
	m.counts[u.Host.IP]++
	return nil
}

func (m *Module) decrement(ip string) {
	if m.counts[ip] <= 1 {
		delete(m.counts, ip)
		return
	}
	m.counts[ip]--
}

func (m *Module) whitelisted(ip string) bool {
	for _, pattern := range m.ircd.Config.ConnlimitWhitelist {
		if globMatch(strings.ToLower(pattern), strings.ToLower(ip)) {
			return true
		}
	}
	return false
}

func globMatch(pattern, s string) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	}
}
