package conn

import (
	"time"

	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

// Kind tags what a Connection has been promoted to, per the design
// notes' ConnectionKind tagged variant.
type Kind int

const (
	// KindUnregistered has not yet completed the handshake.
	KindUnregistered Kind = iota
	KindUser
	KindServer
	KindService
)

// allowedUnregistered is the small allow-list of commands a connection
// may issue before it completes registration.
var allowedUnregistered = map[string]bool{
	"PASS":    true,
	"USER":    true,
	"SERVICE": true,
	"SERVER":  true,
	"NICK":    true,
	"PING":    true,
	"QUIT":    true,
	"CAPAB":   true,
	"SVINFO":  true,
}

// AllowedBeforeRegistration reports whether command may run on a
// connection that has not yet reached Kind != KindUnregistered /
// Phase == PhaseRegistered.
func AllowedBeforeRegistration(command string) bool {
	return allowedUnregistered[command]
}

// Connection is a single socket's framing and registration state. The
// owning handler (User/Server/Service) is referenced only by ID, per the
// design notes' "relations, not owning pointers" guidance; internal/ircd
// holds the ID->entity lookup tables.
type Connection struct {
	ID uint64

	Socket *Socket

	Kind Kind

	UserID   entity.UserID
	ServerID entity.ServerID

	// Pending* hold registration-in-progress fields until the
	// Nick+User/Server/Service pair completes (I8).
	PendingPassword string
	PendingNick     string
	PendingIdent    string
	PendingGECOS    string

	Phase entity.RegistrationPhase

	// BytesInWindow is zeroed by the data-checker timer every 5 seconds;
	// it exists for modules to rate-limit on.
	BytesInWindow int

	LastMessageAt time.Time
	LastPingAt    time.Time

	// WriteChan is written to by the single-threaded event loop and
	// drained by this connection's writeLoop goroutine.
	WriteChan chan wire.Message
}

// NewConnection constructs a fresh, unregistered Connection wrapping
// socket.
func NewConnection(id uint64, socket *Socket) *Connection {
	now := time.Now()
	return &Connection{
		ID:            id,
		Socket:        socket,
		Kind:          KindUnregistered,
		Phase:         entity.PhaseNew,
		LastMessageAt: now,
		LastPingAt:    now,
		WriteChan:     make(chan wire.Message, 64),
	}
}

// HasNick reports whether NICK has been received (for the registration
// state machine's transition rule).
func (c *Connection) HasNick() bool {
	return len(c.PendingNick) > 0
}

// HasOwningCommand reports whether USER, SERVER, or SERVICE has been
// received (the other half of I8's transition rule).
func (c *Connection) HasOwningCommand() bool {
	return len(c.PendingIdent) > 0 || c.Kind == KindServer || c.Kind == KindService
}

// MaybeAdvance moves Phase from New to Partial once either half of I8's
// gate (a NICK, or a USER/SERVER/SERVICE) has arrived. It never sets
// Registered and does not itself construct the owning User/Server
// entity; callers (NICK/USER/SERVER handlers) do that and then call
// Register.
func (c *Connection) MaybeAdvance() {
	if c.Phase == entity.PhaseRegistered {
		return
	}
	if c.HasNick() || c.HasOwningCommand() {
		c.Phase = entity.PhasePartial
	}
}

// Register completes the handshake: records which entity now owns this
// connection and flips Phase to Registered.
func (c *Connection) Register(kind Kind) {
	c.Kind = kind
	c.Phase = entity.PhaseRegistered
}

// Touch records that data was received, resetting the pinger.
func (c *Connection) Touch() {
	c.LastMessageAt = time.Now()
}

// Send enqueues m for delivery to this connection's writeLoop. It never
// blocks the caller on a slow/dead peer beyond the channel's buffer;
// callers running on the single event-loop goroutine must not block here.
func (c *Connection) Send(m wire.Message) {
	select {
	case c.WriteChan <- m:
	default:
		// Writer is backed up; drop rather than stall the event loop. The
		// pinger will eventually notice the connection is dead.
	}
}
