// Package action implements the priority-ordered, named action bus that
// modules use to publish notifications and vote on in-progress
// operations.
package action

import "sort"

// Handler is a single registered callback for a named action.
type Handler func(args ...interface{}) interface{}

// Target optionally scopes a handler's registration to specific users or
// channels, for the users=/channels= filtering the bus applies at call
// time. A nil Target matches everything.
type Target struct {
	Users    []interface{}
	Channels []interface{}
}

type entry struct {
	module   string
	priority int
	handler  Handler
	target   *Target
}

// Bus is a registry of named, priority-ordered action handler lists.
// All methods are expected to run on the single cooperative event-loop
// goroutine; Bus does not lock internally.
type Bus struct {
	handlers map[string][]entry
}

// NewBus constructs an empty action bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string][]entry{}}
}

// Register adds handler under name at priority, owned by module (used
// by Unregister to remove exactly this module's entries). Higher
// priority runs first; ties preserve registration order.
func (b *Bus) Register(name string, module string, priority int, handler Handler) {
	b.RegisterScoped(name, module, priority, handler, nil)
}

// RegisterScoped is like Register but additionally records a Target so
// calls with matching users=/channels= filters can select this handler.
func (b *Bus) RegisterScoped(name string, module string, priority int, handler Handler, target *Target) {
	list := append(b.handlers[name], entry{
		module:   module,
		priority: priority,
		handler:  handler,
		target:   target,
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].priority > list[j].priority
	})
	b.handlers[name] = list
}

// Unregister removes every handler module registered under name.
func (b *Bus) Unregister(name string, module string) {
	list := b.handlers[name]
	out := list[:0]
	for _, e := range list {
		if e.module != module {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		delete(b.handlers, name)
		return
	}
	b.handlers[name] = out
}

// UnregisterModule removes module's entries from every action name, for
// use during a full module unload.
func (b *Bus) UnregisterModule(module string) {
	for name := range b.handlers {
		b.Unregister(name, module)
	}
}

// filterOptions configures which handlers a call should run, via the
// users=/channels= keyword filters RunStandardFiltered accepts.
type filterOptions struct {
	users    []interface{}
	channels []interface{}
}

// Option configures a single action bus call.
type Option func(*filterOptions)

// WithUsers restricts the call to handlers whose registered Target
// includes at least one of the named users (or handlers with no
// Target at all).
func WithUsers(users ...interface{}) Option {
	return func(o *filterOptions) { o.users = users }
}

// WithChannels restricts the call to handlers whose registered Target
// includes at least one of the named channels (or handlers with no
// Target at all).
func WithChannels(channels ...interface{}) Option {
	return func(o *filterOptions) { o.channels = channels }
}

func (b *Bus) matching(name string, opts []Option) []entry {
	var o filterOptions
	for _, apply := range opts {
		apply(&o)
	}

	list := b.handlers[name]
	if len(o.users) == 0 && len(o.channels) == 0 {
		return list
	}

	var out []entry
	for _, e := range list {
		if e.target == nil || targetMatches(e.target, o) {
			out = append(out, e)
		}
	}
	return out
}

func targetMatches(t *Target, o filterOptions) bool {
	for _, want := range o.users {
		for _, have := range t.Users {
			if have == want {
				return true
			}
		}
	}
	for _, want := range o.channels {
		for _, have := range t.Channels {
			if have == want {
				return true
			}
		}
	}
	return len(o.users) == 0 && len(o.channels) == 0
}

// RunStandard calls every handler registered for name in priority order
// and ignores return values.
func (b *Bus) RunStandard(name string, args ...interface{}) {
	for _, e := range b.matching(name, nil) {
		e.handler(args...)
	}
}

// RunStandardFiltered is RunStandard with users=/channels= filtering.
func (b *Bus) RunStandardFiltered(name string, opts []Option, args ...interface{}) {
	for _, e := range b.matching(name, opts) {
		e.handler(args...)
	}
}

// RunUntilTrue calls handlers in priority order, stopping and returning
// true at the first handler whose return value is truthy. Returns false
// if no handler does (or none are registered).
func (b *Bus) RunUntilTrue(name string, args ...interface{}) bool {
	for _, e := range b.matching(name, nil) {
		if truthy(e.handler(args...)) {
			return true
		}
	}
	return false
}

// RunUntilValue calls handlers in priority order, stopping and returning
// the first non-nil return value. Returns nil if no handler produces
// one.
func (b *Bus) RunUntilValue(name string, args ...interface{}) interface{} {
	for _, e := range b.matching(name, nil) {
		if v := e.handler(args...); v != nil {
			return v
		}
	}
	return nil
}

// RunAllowed calls handlers in priority order until one explicitly
// returns false, used for the "commandpermission-<CMD>"/"modepermission-
// <scope>-<letter>" veto gates: any handler voting false cancels the
// operation; nil or true votes allow it. Returns true (allowed) if no
// handler is registered or none vetoes.
func (b *Bus) RunAllowed(name string, args ...interface{}) bool {
	for _, e := range b.matching(name, nil) {
		if v, ok := e.handler(args...).(bool); ok && !v {
			return false
		}
	}
	return true
}

// RunProcessing calls every handler in priority order, passing state
// (e.g. a *[]*entity.User send list) by reference so handlers can mutate
// it in place to suppress or reroute delivery.
func (b *Bus) RunProcessing(name string, state interface{}, args ...interface{}) {
	full := append([]interface{}{state}, args...)
	for _, e := range b.matching(name, nil) {
		e.handler(full...)
	}
}

// truthy mimics the dynamic-language truthiness the ported action
// results rely on: false and nil are falsy, everything else (including
// zero-value strings/ints, which the original's bool(...) calls never
// actually see in practice) is truthy.
func truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
