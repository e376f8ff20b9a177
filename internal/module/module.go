// Package module implements the module contract and the atomic
// load/unload algorithm that wires a module's modes, commands, and
// action handlers into the core registries.
package module

import (
	"fmt"

	"github.com/horgh/ironrelay/internal/action"
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/modeset"
)

// ChannelModeSpec is one channel mode a module contributes.
type ChannelModeSpec struct {
	Letter   byte
	Category modeset.Category
	Impl     modeset.Implementation
	ListImpl modeset.ListImplementation // List category only
	Rank     int                        // Status only
	Symbol   byte                       // Status only
}

// UserModeSpec is one user mode a module contributes.
type UserModeSpec struct {
	Letter   byte
	Category modeset.Category
	Impl     modeset.Implementation
}

// ActionSpec is one action handler a module contributes.
type ActionSpec struct {
	Name     string
	Priority int
	Handler  action.Handler
	Target   *action.Target // optional users=/channels= scope
}

// Module is the contract every loadable unit implements, per spec
// section 4.4.
type Module interface {
	// Name must be unique and non-empty across all loaded modules.
	Name() string

	// Core modules are always loaded and cannot be unloaded.
	Core() bool

	// RequiredOnAllServers marks a module every linked server in the
	// network must also carry, for protocol consistency (e.g. a mode
	// every server must agree exists).
	RequiredOnAllServers() bool

	ChannelModes() []ChannelModeSpec
	UserModes() []UserModeSpec
	Actions() []ActionSpec
	UserCommands() []command.UserCommand
	ServerCommands() []command.ServerCommand

	// Load runs once, after this module's contributions have been
	// committed to the registries.
	Load() error
	// Unload runs before this module's contributions are removed from
	// the registries (a reload: unload then load again).
	Unload() error
	// FullUnload additionally tears down side effects a plain Unload
	// would leave behind (e.g. closing a held resource) ahead of a
	// permanent removal, as opposed to a reload.
	FullUnload() error
	// Rehash is called on every loaded module when the daemon's config
	// is reloaded.
	Rehash() error
	// HookIRCd gives the module a handle to the daemon so it can reach
	// the shared registries/router outside of action-handler calls.
	HookIRCd(ircd interface{})
	// VerifyConfig validates any module-specific configuration keys,
	// returning a *config.ValidationError (or a wrapped one) to reject the
	// value and abort the load.
	VerifyConfig(raw map[string]interface{}) error
}

// LoadError reports why a module's load was rejected. The load, per the
// atomic-load algorithm, performs no partial registration when this is
// returned.
type LoadError struct {
	Name   string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("module %q: %s", e.Name, e.Reason)
}

// Loader owns the action bus, mode registry, and command registry a set
// of modules contribute to, and implements the atomic load/unload
// algorithm over them.
type Loader struct {
	Actions  *action.Bus
	Modes    *modeset.Registry
	Commands *command.Registry

	loaded map[string]Module
}

// NewLoader constructs a Loader bound to the given shared registries.
func NewLoader(actions *action.Bus, modes *modeset.Registry, commands *command.Registry) *Loader {
	return &Loader{
		Actions:  actions,
		Modes:    modes,
		Commands: commands,
		loaded:   map[string]Module{},
	}
}

// Load runs the atomic load algorithm for m: validate uniqueness, dry-run
// collision-check every proposed mode/command, then commit all of it, or
// none of it, to the shared registries.
func (l *Loader) Load(m Module) error {
	name := m.Name()
	if name == "" {
		return &LoadError{Name: name, Reason: "module name must not be blank"}
	}
	if _, exists := l.loaded[name]; exists {
		return &LoadError{Name: name, Reason: "a module with this name is already loaded"}
	}

	for _, spec := range m.ChannelModes() {
		if _, exists := l.Modes.ChannelMode(spec.Letter); exists {
			return &LoadError{Name: name, Reason: fmt.Sprintf("channel mode %q already registered", string(spec.Letter))}
		}
	}
	for _, spec := range m.UserModes() {
		if _, exists := l.Modes.UserMode(spec.Letter); exists {
			return &LoadError{Name: name, Reason: fmt.Sprintf("user mode %q already registered", string(spec.Letter))}
		}
	}
	for _, spec := range m.ChannelModes() {
		if spec.Category != modeset.Status {
			continue
		}
		for _, letter := range l.Modes.StatusOrder() {
			existing, _ := l.Modes.ChannelMode(letter)
			if existing.Symbol == spec.Symbol {
				return &LoadError{Name: name, Reason: fmt.Sprintf("status symbol %q already registered", string(spec.Symbol))}
			}
			if existing.Rank == spec.Rank {
				return &LoadError{Name: name, Reason: fmt.Sprintf("status rank %d already registered", spec.Rank)}
			}
		}
	}

	// Commit: no step beyond this point can fail, since collisions were
	// already ruled out above.
	for _, spec := range m.ChannelModes() {
		_ = l.Modes.RegisterChannelMode(&modeset.Descriptor{
			Letter: spec.Letter, Category: spec.Category, Impl: spec.Impl,
			ListImpl: spec.ListImpl, Rank: spec.Rank, Symbol: spec.Symbol,
		})
	}
	for _, spec := range m.UserModes() {
		_ = l.Modes.RegisterUserMode(&modeset.Descriptor{
			Letter: spec.Letter, Category: spec.Category, Impl: spec.Impl,
		})
	}
	for _, spec := range m.Actions() {
		l.Actions.RegisterScoped(spec.Name, name, spec.Priority, spec.Handler, spec.Target)
	}
	for _, cmd := range m.UserCommands() {
		l.Commands.RegisterUserCommand(name, cmd)
	}
	for _, cmd := range m.ServerCommands() {
		l.Commands.RegisterServerCommand(name, cmd)
	}

	l.loaded[name] = m

	if err := m.Load(); err != nil {
		// The module itself rejected startup after registration; unwind
		// what we just committed so there is no partial module present.
		l.unregisterAll(name, m)
		delete(l.loaded, name)
		return &LoadError{Name: name, Reason: err.Error()}
	}

	l.Actions.RunStandard("moduleload", name)

	return nil
}

// Unload removes m's (handler, priority) entries from every registry. If
// full is true, it also invokes FullUnload for side-effect teardown
// ahead of a permanent removal; otherwise this is the first half of a
// reload.
func (l *Loader) Unload(name string, full bool) error {
	m, ok := l.loaded[name]
	if !ok {
		return &LoadError{Name: name, Reason: "not loaded"}
	}
	if m.Core() {
		return &LoadError{Name: name, Reason: "core modules cannot be unloaded"}
	}

	if err := m.Unload(); err != nil {
		return err
	}
	if full {
		if err := m.FullUnload(); err != nil {
			return err
		}
	}

	l.unregisterAll(name, m)
	delete(l.loaded, name)
	return nil
}

// Reload unloads (non-full) then re-loads m under the same name.
func (l *Loader) Reload(m Module) error {
	if err := l.Unload(m.Name(), false); err != nil {
		return err
	}
	return l.Load(m)
}

func (l *Loader) unregisterAll(name string, m Module) {
	for _, spec := range m.ChannelModes() {
		l.Modes.UnregisterChannelMode(spec.Letter)
	}
	for _, spec := range m.UserModes() {
		l.Modes.UnregisterUserMode(spec.Letter)
	}
	l.Actions.UnregisterModule(name)
	l.Commands.UnregisterModule(name)
}

// Loaded reports whether a module with this name is currently loaded.
func (l *Loader) Loaded(name string) bool {
	_, ok := l.loaded[name]
	return ok
}

// Rehash invokes Rehash on every currently loaded module.
func (l *Loader) Rehash() []error {
	var errs []error
	for _, m := range l.loaded {
		if err := m.Rehash(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
