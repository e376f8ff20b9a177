// Package ircd wires the wire codec, entity model, mode/command/action
// registries, module loader, router, and connection layer into the
// single daemon handle every module receives via HookIRCd, per the
// design notes' "no singletons" guidance.
package ircd

import (
	"time"

	"github.com/pkg/errors"

	"github.com/horgh/ironrelay/internal/action"
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/config"
	"github.com/horgh/ironrelay/internal/conn"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/listener"
	"github.com/horgh/ironrelay/internal/modeset"
	"github.com/horgh/ironrelay/internal/module"
	"github.com/horgh/ironrelay/internal/router"
	"github.com/horgh/ironrelay/internal/wire"
)

// recentWindow is how long a quit/destroy record is kept around to
// absorb cross-link races during lostsource/losttarget tolerance.
const recentWindow = 2 * time.Minute

// ErrNickInUse is returned by RegisterUser/RenameNick when the
// requested nick collides with an existing one.
var ErrNickInUse = errors.New("nick in use")

// ErrUnknownUser/ErrUnknownChannel report a lookup miss that is not
// itself an error condition callers need to log, just branch on.
var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownChannel = errors.New("unknown channel")
)

// IRCd is the process-wide daemon handle. Every module receives one via
// HookIRCd; the core registries it owns are mutated only by the methods
// below, never reached into directly by modules.
type IRCd struct {
	Self   entity.Self
	Config *config.Document

	Modes    *modeset.Registry
	Actions  *action.Bus
	Commands *command.Registry
	Loader   *module.Loader
	Router   *router.Router
	BanMode  *modeset.BanMode

	PeerLimiter *listener.PeerLimiter

	// OnOutboundConnect is wired by cmd/ironrelay at startup so a CONNECT
	// command's freshly dialed outbound socket joins the same accept path
	// an inbound listener connection goes through. Nil until the daemon
	// wires it; PrepareLink reports an error rather than panicking if
	// called before that.
	OnOutboundConnect OnOutboundConnect

	Users    map[entity.UserID]*entity.User
	nicks    map[string]entity.UserID // canonical nick -> UUID
	Channels map[string]*entity.Channel
	Peers    map[entity.ServerID]*entity.Peer

	conns     map[uint64]*conn.Connection
	userConns map[entity.UserID]*conn.Connection
	peerConns map[entity.ServerID]*conn.Connection

	recentlyQuitUsers         map[string]time.Time
	recentlyQuitServers       map[entity.ServerID]time.Time
	recentlyDestroyedChannels map[string]time.Time

	// KLines is the operator-settable server ban list: hostmask pattern
	// (nick!ident@host glob, nick/ident wildcarded to "*" when added via
	// the KLINE command) -> reason. Checked once, at registration
	// completion; unlike channel bans this has no per-membership cache
	// since it only ever applies before a User exists.
	KLines map[string]string

	nextConnID  uint64
	nextUserSeq uint64
}

// New constructs an IRCd bound to doc, identifying itself as self. The
// mode/action/command registries start empty; built-in behavior is
// wired in only once the caller loads modules (cmd/ironrelay/main.go
// does this against a static name->constructor table).
func New(doc *config.Document, self entity.Self) *IRCd {
	modes := modeset.NewRegistry()
	actions := action.NewBus()

	d := &IRCd{
		Self:     self,
		Config:   doc,
		Modes:    modes,
		Actions:  actions,
		Commands: command.NewRegistry(),
		BanMode:  modeset.NewBanMode(modes, actions),

		PeerLimiter: listener.NewPeerLimiter(doc.MaxConnectionsPerPeer, doc.MaxConnectionExempt),

		Users:    map[entity.UserID]*entity.User{},
		nicks:    map[string]entity.UserID{},
		Channels: map[string]*entity.Channel{},
		Peers:    map[entity.ServerID]*entity.Peer{},

		conns:     map[uint64]*conn.Connection{},
		userConns: map[entity.UserID]*conn.Connection{},
		peerConns: map[entity.ServerID]*conn.Connection{},

		recentlyQuitUsers:         map[string]time.Time{},
		recentlyQuitServers:       map[entity.ServerID]time.Time{},
		recentlyDestroyedChannels: map[string]time.Time{},

		KLines: map[string]string{},
	}
	d.Loader = module.NewLoader(actions, modes, d.Commands)
	d.Router = router.NewRouter(d)
	return d
}

// SendTo implements router.Sender: deliver msg to a local user's
// connection, if they have one on this server (a remote user has none).
func (d *IRCd) SendTo(userID entity.UserID, msg wire.Message) {
	if c, ok := d.userConns[userID]; ok {
		c.Send(msg)
	}
}

// SendToServer implements router.Sender: write msg to the directly
// linked peer serverID's connection.
func (d *IRCd) SendToServer(serverID entity.ServerID, msg wire.Message) {
	if c, ok := d.peerConns[serverID]; ok {
		c.Send(msg)
	}
}

// AddConnection tracks a freshly accepted Connection under its ID.
func (d *IRCd) AddConnection(c *conn.Connection) {
	d.conns[c.ID] = c
}

// NextConnID returns a fresh, process-unique Connection ID.
func (d *IRCd) NextConnID() uint64 {
	d.nextConnID++
	return d.nextConnID
}

// NextUserID mints the UserID for the next local registration.
func (d *IRCd) NextUserID() (entity.UserID, error) {
	id, err := entity.NextUserID(d.Self.ServerID, d.nextUserSeq)
	if err != nil {
		return "", err
	}
	d.nextUserSeq++
	return id, nil
}

// Connection looks up a tracked Connection by its ID.
func (d *IRCd) Connection(id uint64) (*conn.Connection, bool) {
	c, ok := d.conns[id]
	return c, ok
}

// Connections returns every tracked Connection, for the daemon's timer
// sweeps (data checker, pinger).
func (d *IRCd) Connections() []*conn.Connection {
	out := make([]*conn.Connection, 0, len(d.conns))
	for _, c := range d.conns {
		out = append(out, c)
	}
	return out
}

// RemoveConnection stops tracking a closed Connection.
func (d *IRCd) RemoveConnection(id uint64) {
	delete(d.conns, id)
}

// LookupNick resolves a nick (any case) to its User, per the network-wide
// case-insensitive uniqueness the irc-lowercase casemap enforces.
func (d *IRCd) LookupNick(nick string) (*entity.User, bool) {
	id, ok := d.nicks[entity.Canonicalize(nick)]
	if !ok {
		return nil, false
	}
	u, ok := d.Users[id]
	return u, ok
}

// LookupUser resolves a UserID directly.
func (d *IRCd) LookupUser(id entity.UserID) (*entity.User, bool) {
	u, ok := d.Users[id]
	return u, ok
}

// LookupChannel resolves a channel by name (any case).
func (d *IRCd) LookupChannel(name string) (*entity.Channel, bool) {
	c, ok := d.Channels[entity.CanonicalizeChannel(name)]
	return c, ok
}

// RegisterUser inserts u into the user/nick registries, enforcing
// network-wide nick uniqueness. The caller must have already validated
// nick syntax.
func (d *IRCd) RegisterUser(u *entity.User, c *conn.Connection) error {
	canon := entity.CanonicalizeNick(u.Nick)
	if _, exists := d.nicks[canon]; exists {
		return errors.Wrapf(ErrNickInUse, "nick %q", u.Nick)
	}

	d.Users[u.UUID] = u
	d.nicks[canon] = u.UUID
	if u.LocalOnly && c != nil {
		d.userConns[u.UUID] = c
	}

	if u.LocalOnly {
		d.Actions.RunStandard("userconnect", u)
	}
	return nil
}

// RenameNick changes u's nick, enforcing nick uniqueness against the
// new name. It
// updates the nick index but leaves broadcasting the NICK change to the
// caller (the nick command module), since that requires channel fan-out
// this package does not itself decide the wording of.
func (d *IRCd) RenameNick(u *entity.User, newNick string) error {
	canon := entity.CanonicalizeNick(newNick)
	if id, exists := d.nicks[canon]; exists && id != u.UUID {
		return errors.Wrapf(ErrNickInUse, "nick %q", newNick)
	}

	delete(d.nicks, entity.CanonicalizeNick(u.Nick))
	u.Nick = newNick
	d.nicks[canon] = u.UUID
	return nil
}

// RemoveUser tears down u: parts every channel it is a member of,
// removes it from the nick/user registries, and records a
// recently-quit tombstone for cross-link race tolerance.
func (d *IRCd) RemoveUser(u *entity.User) {
	for _, ch := range u.Channels {
		d.PartChannel(u, ch)
	}

	delete(d.nicks, entity.CanonicalizeNick(u.Nick))
	delete(d.Users, u.UUID)
	delete(d.userConns, u.UUID)

	d.recentlyQuitUsers[entity.Canonicalize(string(u.UUID))] = time.Now()
	d.recentlyQuitUsers[entity.CanonicalizeNick(u.Nick)] = time.Now()

	if u.LocalOnly {
		d.Actions.RunStandard("quit", u)
	}
}

// RecentlyQuitUser reports whether id or nick recently quit, within the
// race-tolerance window.
func (d *IRCd) RecentlyQuitUser(idOrNick string) bool {
	t, ok := d.recentlyQuitUsers[entity.Canonicalize(idOrNick)]
	if !ok {
		return false
	}
	return time.Since(t) < recentWindow
}

// RecentlyQuitServer is RecentlyQuitUser's peer-server analogue.
func (d *IRCd) RecentlyQuitServer(id entity.ServerID) bool {
	t, ok := d.recentlyQuitServers[id]
	if !ok {
		return false
	}
	return time.Since(t) < recentWindow
}

// RecentlyDestroyedChannel is RecentlyQuitUser's channel analogue.
func (d *IRCd) RecentlyDestroyedChannel(name string) bool {
	t, ok := d.recentlyDestroyedChannels[entity.CanonicalizeChannel(name)]
	if !ok {
		return false
	}
	return time.Since(t) < recentWindow
}

// GetOrCreateChannel returns the channel named name, creating it
// (unregistered, empty) if it does not yet exist: channels are created
// lazily on first JOIN.
func (d *IRCd) GetOrCreateChannel(name string) (*entity.Channel, bool) {
	canon := entity.CanonicalizeChannel(name)
	if ch, ok := d.Channels[canon]; ok {
		return ch, false
	}

	ch := entity.NewChannel(canon)
	ch.CreatedAt = time.Now()
	d.Channels[canon] = ch
	return ch, true
}

// JoinChannel adds u to channel named name (creating it if needed),
// populates the new member's ban cache, and applies any auto-status the
// ban cache grants. It returns the channel, the new Membership, and
// whether the channel was just created.
func (d *IRCd) JoinChannel(u *entity.User, name string) (*entity.Channel, *entity.Membership, bool) {
	ch, created := d.GetOrCreateChannel(name)

	m := ch.Join(u)
	u.Channels[ch.Name] = ch

	d.BanMode.PopulateBanCache(ch, m)
	for _, letter := range d.BanMode.AutoStatus(m) {
		m.Status[letter] = true
	}

	return ch, m, created
}

// PartChannel removes u's membership from ch (applied atomically on
// both sides) and destroys ch if that leaves it empty and unregistered.
func (d *IRCd) PartChannel(u *entity.User, ch *entity.Channel) {
	ch.Part(u.UUID)
	delete(u.Channels, ch.Name)

	if ch.ShouldDestroy() {
		delete(d.Channels, ch.Name)
		d.recentlyDestroyedChannels[ch.Name] = time.Now()
	}
}

// DropEmptyChannel removes ch from the registry if it is empty and
// unregistered, for callers that probe a channel's permission gates
// (join/key/limit) before actually joining and must undo a
// lazily-created channel on denial.
func (d *IRCd) DropEmptyChannel(ch *entity.Channel) {
	if ch.ShouldDestroy() {
		delete(d.Channels, ch.Name)
	}
}

// CloseUser disconnects a local user's connection with reason: it sends
// an ERROR line, closes the socket, and tears down the user's state via
// RemoveUser. Safe to call for a user with no local connection (a no-op
// beyond RemoveUser), e.g. a remote user being cleaned up after its
// origin server link drops.
func (d *IRCd) CloseUser(u *entity.User, reason string) {
	if c, ok := d.userConns[u.UUID]; ok {
		c.Send(wire.Message{Command: "ERROR", Params: []string{"Closing Link: " + reason}})
		_ = c.Socket.Close()
	}
	d.RemoveUser(u)
}

// AddKLine registers a hostmask pattern ban with reason, overwriting any
// existing entry for the same pattern.
func (d *IRCd) AddKLine(mask, reason string) {
	d.KLines[mask] = reason
}

// RemoveKLine removes a hostmask pattern ban, reporting whether one
// existed.
func (d *IRCd) RemoveKLine(mask string) bool {
	if _, ok := d.KLines[mask]; !ok {
		return false
	}
	delete(d.KLines, mask)
	return true
}

// CheckKLine reports whether hostmask (a "nick!ident@host"-shaped
// string built from the freshly completing registration) matches any
// configured K-line, and the reason if so.
func (d *IRCd) CheckKLine(hostmask string) (reason string, matched bool) {
	lowered := entity.Canonicalize(hostmask)
	for mask, r := range d.KLines {
		if entity.Canonicalize(mask) == lowered {
			return r, true
		}
		if wildcardMatch(lowered, entity.Canonicalize(mask)) {
			return r, true
		}
	}
	return "", false
}

// wildcardMatch implements the same shell-style '*'/'?' glob as the ban
// mode's matcher; duplicated locally (rather than importing modeset)
// since K-lines are a server-level gate with no ban-mode/extban grammar
// of their own.
func wildcardMatch(s, pattern string) bool {
	var si, pi, star, match int
	star = -1
	for si < len(s) {
		if pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]) {
			si++
			pi++
			continue
		}
		if pi < len(pattern) && pattern[pi] == '*' {
			star = pi
			match = si
			pi++
			continue
		}
		if star != -1 {
			pi = star + 1
			match++
			si = match
			continue
		}
		return false
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Peer looks up a linked server by ID.
func (d *IRCd) Peer(id entity.ServerID) (*entity.Peer, bool) {
	p, ok := d.Peers[id]
	return p, ok
}

// AddPeer registers a newly linked (or learned-about) server.
func (d *IRCd) AddPeer(p *entity.Peer, c *conn.Connection) {
	d.Peers[p.ServerID] = p
	if c != nil {
		d.peerConns[p.ServerID] = c
	}
}

// RemovePeer tears down a peer link, recording a tombstone for
// cross-link race tolerance. This only forgets the link itself; the
// user-keyed "remotequit" action is fired per affected remote user by
// the caller that tears down each user's state, not here.
func (d *IRCd) RemovePeer(id entity.ServerID) {
	delete(d.Peers, id)
	delete(d.peerConns, id)
	d.recentlyQuitServers[id] = time.Now()
}

// AllPeers returns every directly and indirectly linked peer, for
// BroadcastToServers callers that fan out network-wide.
func (d *IRCd) AllPeers() []*entity.Peer {
	out := make([]*entity.Peer, 0, len(d.Peers))
	for _, p := range d.Peers {
		out = append(out, p)
	}
	return out
}

// Shutdown issues a QUIT for every local user with reason, closes every
// tracked connection, and waits for the caller-supplied closeFn (which
// flushes module/persistence state) to return. This is synchronous from
// the state graph's perspective: by the time Shutdown returns, no local
// user remains. Remote users, peers and registered channels are left in
// place.
func (d *IRCd) Shutdown(reason string, closeFn func() error) error {
	for _, u := range d.Users {
		if !u.LocalOnly {
			continue
		}
		d.QuitUser(u, reason)
	}

	for _, c := range d.conns {
		_ = c.Socket.Close()
	}

	if closeFn != nil {
		return closeFn()
	}
	return nil
}
