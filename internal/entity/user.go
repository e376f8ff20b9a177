package entity

import "time"

// RegistrationPhase tracks where a User's owning Connection sits in the
// registration state machine (spec I8). A User only exists once phase
// reaches Registered; before then the in-progress state lives on the
// Connection, not here.
type RegistrationPhase int

const (
	// PhaseNew is a freshly accepted connection with no NICK or USER yet.
	PhaseNew RegistrationPhase = iota
	// PhasePartial has a NICK, a USER/SERVER/SERVICE, or both, but has
	// not completed the handshake.
	PhasePartial
	// PhaseRegistered has completed the handshake.
	PhaseRegistered
)

// Hostmasks holds the three forms of a user's host a remote peer may
// see: regular, real-host, and IP.
type Hostmasks struct {
	// Display is the possibly-cloaked/vhost form shown in the prefix.
	Display string
	// Real is the genuine reverse-DNS (or literal IP if none) hostname.
	Real string
	// IP is the literal IP address, textual form.
	IP string
}

// User is a fully registered network user.
type User struct {
	UUID UserID

	// Nick is stored in its original case; canonical lookups go through
	// Canonicalize(Nick), never a direct comparison.
	Nick string

	Ident string
	GECOS string

	Host Hostmasks

	// Channels this user currently belongs to, keyed by the channel's
	// canonical name. Membership here must always match the symmetric
	// entry in the Channel's Users map.
	Channels map[string]*Channel

	// Modes holds user-mode parameters; a no-param mode is present with
	// an empty string value.
	Modes map[byte]string

	// Metadata holds arbitrary string state modules attach to the user,
	// e.g. "account".
	Metadata map[string]string

	// Cache is scratch, per-module state that does not need to survive
	// beyond the process, e.g. ping/pong timestamps.
	Cache map[string]interface{}

	IdleSince time.Time

	// LocalOnly marks a user registered on this server (as opposed to a
	// remote user learned about via a peer server link).
	LocalOnly bool

	Registered RegistrationPhase

	// Server is the serverID this user is connected to (this server if
	// LocalOnly, otherwise the remote origin learned from UID bursts).
	Server ServerID
}

// NewUser constructs a User in the Registered phase with empty
// collections initialized, ready to be inserted into the registries.
func NewUser(uuid UserID, nick, ident, gecos string, host Hostmasks, server ServerID, local bool) *User {
	return &User{
		UUID:       uuid,
		Nick:       nick,
		Ident:      ident,
		GECOS:      gecos,
		Host:       host,
		Channels:   map[string]*Channel{},
		Modes:      map[byte]string{},
		Metadata:   map[string]string{},
		Cache:      map[string]interface{}{},
		IdleSince:  time.Time{},
		LocalOnly:  local,
		Registered: PhaseRegistered,
		Server:     server,
	}
}

// HasMode reports whether the user has mode letter m set.
func (u *User) HasMode(m byte) bool {
	_, ok := u.Modes[m]
	return ok
}

// IsOper reports whether the user holds operator privilege, by
// convention the 'o' user mode.
func (u *User) IsOper() bool {
	return u.HasMode('o')
}
