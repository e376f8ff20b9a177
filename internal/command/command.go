// Package command implements the user-command and server-command
// registries: priority-ordered handler tables keyed by command name.
package command

import (
	"sort"

	"github.com/horgh/ironrelay/internal/entity"
)

// Registration controls whether a command may run before registration
// completes (spec I8's allow-list), per command descriptor's
// forRegistered gate.
type Registration int

const (
	// Either runs whether or not the connection is registered.
	Either Registration = iota
	// RequireRegistered runs only once the connection is registered.
	RequireRegistered
	// RequireUnregistered runs only before registration completes (the
	// small PASS/NICK/USER/etc. allow-list).
	RequireUnregistered
)

// UserCommand is the contract a module's user-facing command handler
// must satisfy.
type UserCommand interface {
	// Name is the command's protocol name, e.g. "PRIVMSG". Matching is
	// case-insensitive; registries store it upper-cased.
	Name() string

	// Priority governs ordering within this command's handler list;
	// higher runs first.
	Priority() int

	// ForRegistered gates whether this handler may run before the
	// connection has completed registration.
	ForRegistered() Registration

	// ParseParams validates and shapes raw parameters into an opaque data
	// value for AffectedUsers/AffectedChannels/Execute. A nil data value
	// means parsing failed; the handler is expected to have already sent
	// a user-visible error via an ErrorSink.
	ParseParams(actor *entity.User, params []string, sink *ErrorSink) interface{}

	// AffectedUsers returns the users this invocation's action-bus calls
	// should be scoped to via the users= filter.
	AffectedUsers(data interface{}) []*entity.User

	// AffectedChannels returns the channels this invocation's
	// action-bus calls should be scoped to via the channels= filter.
	AffectedChannels(data interface{}) []*entity.Channel

	// Execute performs the state mutation and any wire/peer fan-out.
	Execute(actor *entity.User, data interface{})
}

// ServerCommand is the server-to-server analogue of UserCommand. Its
// ParseParams additionally tolerates races against recently-quit
// sources/destinations. fromServer identifies the directly linked peer
// the message arrived on, so Execute can exclude that link when
// flooding the message on to other peers.
type ServerCommand interface {
	Name() string
	Priority() int

	// ParseParams returns (data, lostSource, lostTarget). A lost source
	// or target means the command should no-op: the peer we'd act on
	// behalf of, or the target we'd act on, raced a QUIT/SQUIT/channel
	// destruction and the event arrived after the fact.
	ParseParams(sourceID string, fromServer entity.ServerID, params []string) (data interface{}, lostSource bool, lostTarget bool)

	Execute(sourceID string, fromServer entity.ServerID, data interface{})
}

type userEntry struct {
	module string
	cmd    UserCommand
}

type serverEntry struct {
	module string
	cmd    ServerCommand
}

// Registry holds the user-command and server-command tables.
type Registry struct {
	user   map[string][]userEntry
	server map[string][]serverEntry
}

// NewRegistry constructs an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		user:   map[string][]userEntry{},
		server: map[string][]serverEntry{},
	}
}

// RegisterUserCommand adds cmd, owned by module, to the user-command
// table, re-sorting its handler list into priority-descending order
// (ties preserve insertion order).
func (r *Registry) RegisterUserCommand(module string, cmd UserCommand) {
	name := upper(cmd.Name())
	list := append(r.user[name], userEntry{module: module, cmd: cmd})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].cmd.Priority() > list[j].cmd.Priority()
	})
	r.user[name] = list
}

// RegisterServerCommand is RegisterUserCommand's server-table analogue.
func (r *Registry) RegisterServerCommand(module string, cmd ServerCommand) {
	name := upper(cmd.Name())
	list := append(r.server[name], serverEntry{module: module, cmd: cmd})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].cmd.Priority() > list[j].cmd.Priority()
	})
	r.server[name] = list
}

// UnregisterModule removes every user- and server-command handler
// module contributed, for use during a module unload.
func (r *Registry) UnregisterModule(module string) {
	for name, list := range r.user {
		out := list[:0]
		for _, e := range list {
			if e.module != module {
				out = append(out, e)
			}
		}
		if len(out) == 0 {
			delete(r.user, name)
		} else {
			r.user[name] = out
		}
	}

	for name, list := range r.server {
		out := list[:0]
		for _, e := range list {
			if e.module != module {
				out = append(out, e)
			}
		}
		if len(out) == 0 {
			delete(r.server, name)
		} else {
			r.server[name] = out
		}
	}
}

// UserCommands returns the priority-ordered handler list for name, or
// nil if no module registered one.
func (r *Registry) UserCommands(name string) []UserCommand {
	list := r.user[upper(name)]
	if len(list) == 0 {
		return nil
	}
	out := make([]UserCommand, len(list))
	for i, e := range list {
		out[i] = e.cmd
	}
	return out
}

// ServerCommands returns the priority-ordered handler list for name, or
// nil if no module registered one.
func (r *Registry) ServerCommands(name string) []ServerCommand {
	list := r.server[upper(name)]
	if len(list) == 0 {
		return nil
	}
	out := make([]ServerCommand, len(list))
	for i, e := range list {
		out[i] = e.cmd
	}
	return out
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
