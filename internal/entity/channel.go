package entity

import "time"

// Topic holds a channel's topic and the provenance of its last change.
type Topic struct {
	Text   string
	Setter string
	SetAt  time.Time
}

// ListModeEntry is one entry of a List-category mode, e.g. one ban mask
// on the 'b' mode.
type ListModeEntry struct {
	Param  string
	Setter string
	SetAt  time.Time
}

// Membership is the per-user, per-channel state a Channel keeps about
// one of its members: status modes, and caches populated by modules
// (most importantly the ban cache).
type Membership struct {
	User *User

	// Status holds the status mode letters (e.g. 'o', 'v') this member
	// currently holds in the channel.
	Status map[byte]bool

	// Bans is the per-membership ban cache: keyed by the action-extban
	// letter that matched (see modeset/cmodeban.go); the empty string key
	// represents a plain (non-extban) ban match that denies join/speak
	// outright. It is kept consistent with the channel's 'b' list as of
	// the last ban cache refresh.
	Bans map[string]bool
}

// Channel is a joined or registered channel.
type Channel struct {
	Name string // canonical form; the display form used at first JOIN is not kept

	CreatedAt time.Time

	Topic Topic

	// Users maps a member's UUID to their Membership record. Order is
	// not semantically meaningful beyond Go's map iteration, matching
	// spec's "ordered mapping" loosely — ordering guarantees (e.g. for
	// NAMES output) are applied at the point of use, not stored here.
	Users map[UserID]*Membership

	// Modes holds NoParam/Param/ParamOnUnset values as plain strings,
	// keyed by mode letter. List-category modes (e.g. 'b') are NOT
	// stored here; see Lists.
	Modes map[byte]string

	// Lists holds List-category mode entries, keyed by mode letter.
	Lists map[byte][]ListModeEntry

	// Registered marks the channel as persisted by a services module; a
	// registered channel survives becoming empty.
	Registered bool
}

// NewChannel constructs an empty, unregistered channel.
func NewChannel(name string) *Channel {
	return &Channel{
		Name:      name,
		CreatedAt: time.Time{},
		Users:     map[UserID]*Membership{},
		Modes:     map[byte]string{},
		Lists:     map[byte][]ListModeEntry{},
	}
}

// Join adds user as a member, creating its Membership record. It is the
// caller's responsibility to also add the channel to the user's
// Channels map in the same operation.
func (c *Channel) Join(u *User) *Membership {
	m := &Membership{
		User:   u,
		Status: map[byte]bool{},
		Bans:   map[string]bool{},
	}
	c.Users[u.UUID] = m
	return m
}

// Part removes user from the channel's membership. The caller must also
// remove the channel from the user's Channels map.
func (c *Channel) Part(uuid UserID) {
	delete(c.Users, uuid)
}

// Empty reports whether the channel has no members. Combined with
// Registered, this decides destruction.
func (c *Channel) Empty() bool {
	return len(c.Users) == 0
}

// ShouldDestroy reports whether the channel should be torn down: it has
// no members and is not registered.
func (c *Channel) ShouldDestroy() bool {
	return c.Empty() && !c.Registered
}

// Membership looks up a member's Membership record by UUID.
func (c *Channel) Membership(uuid UserID) (*Membership, bool) {
	m, ok := c.Users[uuid]
	return m, ok
}

// AddListEntry appends an entry to a List-category mode, e.g. +b.
func (c *Channel) AddListEntry(letter byte, entry ListModeEntry) {
	c.Lists[letter] = append(c.Lists[letter], entry)
}

// RemoveListEntry removes the first entry matching param from a
// List-category mode, reporting whether one was found.
func (c *Channel) RemoveListEntry(letter byte, param string) bool {
	entries := c.Lists[letter]
	for i, e := range entries {
		if e.Param == param {
			c.Lists[letter] = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}
