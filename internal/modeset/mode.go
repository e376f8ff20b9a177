// Package modeset implements the four-category channel and user mode
// registries, status-mode ordering, and the channel ban/extban engine.
package modeset

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/horgh/ironrelay/internal/entity"
)

// Category classifies how a mode letter's parameter behaves.
type Category int

const (
	// NoParam modes take no parameter, e.g. +i.
	NoParam Category = iota
	// Param modes take a parameter both when set and unset, e.g. +k.
	Param
	// ParamOnUnset modes take a parameter only when being unset.
	ParamOnUnset
	// List modes hold an ordered list of parameterized entries, e.g. +b.
	List
	// Status modes grant a ranked, symbol-displayed privilege to a
	// specific member, e.g. +o/+v.
	Status
)

// ErrUnknownMode is returned when a mode letter has no registered
// descriptor.
var ErrUnknownMode = errors.New("unknown mode")

// ErrModeExists is returned when registering a mode letter that is
// already registered in some category.
var ErrModeExists = errors.New("mode letter already registered")

// Implementation is the behavior a mode descriptor delegates to for
// validating and applying parameter changes. Implementations for
// NoParam/Status modes may leave CheckSet/CheckUnset nil; the registry
// then accepts any parameter as-is.
type Implementation interface {
	// CheckSet validates/canonicalizes a parameter being set, returning
	// the (possibly rewritten) list of values that should actually be
	// applied, or an error to reject the change outright.
	CheckSet(param string) ([]string, error)

	// CheckUnset validates/canonicalizes a parameter being unset.
	CheckUnset(param string) ([]string, error)
}

// ListImplementation is the contract a List-category mode uses instead
// of Implementation, since a list entry's validation/canonicalization
// can depend on the channel's existing list (ban mode's case-insensitive
// unset matching) rather than just the raw parameter. A single CheckSet
// call may expand one param into several entries (e.g. a comma-separated
// ban list, or an action extban's CheckSet delegation).
type ListImplementation interface {
	CheckSet(channel *entity.Channel, param string) []string
	CheckUnset(channel *entity.Channel, param string) []string
}

// Descriptor describes one registered mode letter.
type Descriptor struct {
	Letter   byte
	Category Category
	Impl     Implementation

	// ListImpl is used instead of Impl for List-category modes.
	ListImpl ListImplementation

	// Rank and Symbol apply only to Status modes; each status mode needs
	// a unique symbol and rank.
	Rank   int
	Symbol byte
}

// Registry holds the channel mode table, the user mode table, and the
// rank-descending status order.
type Registry struct {
	channel map[byte]*Descriptor
	user    map[byte]*Descriptor

	// statusOrder is kept sorted by Rank descending after every
	// RegisterChannelMode call that adds a Status descriptor.
	statusOrder []byte
}

// NewRegistry constructs an empty mode registry.
func NewRegistry() *Registry {
	return &Registry{
		channel: map[byte]*Descriptor{},
		user:    map[byte]*Descriptor{},
	}
}

// RegisterChannelMode adds d to the channel mode table. It is an error
// to register a letter already present in the channel table; the user
// table is a separate namespace.
func (r *Registry) RegisterChannelMode(d *Descriptor) error {
	if _, exists := r.channel[d.Letter]; exists {
		return errors.Wrapf(ErrModeExists, "channel mode %q", string(d.Letter))
	}
	r.channel[d.Letter] = d

	if d.Category == Status {
		r.statusOrder = append(r.statusOrder, d.Letter)
		sort.Slice(r.statusOrder, func(i, j int) bool {
			return r.channel[r.statusOrder[i]].Rank > r.channel[r.statusOrder[j]].Rank
		})
	}

	return nil
}

// UnregisterChannelMode removes a previously registered channel mode
// letter, e.g. when its contributing module unloads.
func (r *Registry) UnregisterChannelMode(letter byte) {
	delete(r.channel, letter)

	for i, l := range r.statusOrder {
		if l == letter {
			r.statusOrder = append(r.statusOrder[:i], r.statusOrder[i+1:]...)
			break
		}
	}
}

// RegisterUserMode adds d to the user mode table.
func (r *Registry) RegisterUserMode(d *Descriptor) error {
	if _, exists := r.user[d.Letter]; exists {
		return errors.Wrapf(ErrModeExists, "user mode %q", string(d.Letter))
	}
	r.user[d.Letter] = d
	return nil
}

// UnregisterUserMode removes a previously registered user mode letter.
func (r *Registry) UnregisterUserMode(letter byte) {
	delete(r.user, letter)
}

// ChannelMode looks up a channel mode descriptor.
func (r *Registry) ChannelMode(letter byte) (*Descriptor, bool) {
	d, ok := r.channel[letter]
	return d, ok
}

// UserMode looks up a user mode descriptor.
func (r *Registry) UserMode(letter byte) (*Descriptor, bool) {
	d, ok := r.user[letter]
	return d, ok
}

// StatusOrder returns the current rank-descending status mode letters.
// The returned slice is owned by the caller.
func (r *Registry) StatusOrder() []byte {
	out := make([]byte, len(r.statusOrder))
	copy(out, r.statusOrder)
	return out
}

// StatusRank returns the rank of a status mode letter, or -1 if letter
// is not a registered status mode.
func (r *Registry) StatusRank(letter byte) int {
	d, ok := r.channel[letter]
	if !ok || d.Category != Status {
		return -1
	}
	return d.Rank
}
