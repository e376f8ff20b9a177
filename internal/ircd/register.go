package ircd

import (
	"strconv"
	"strings"
	"time"

	"github.com/horgh/ironrelay/internal/conn"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

// specialNickChars are the non-alnum characters RFC 1459/2812 permit in
// a nick beyond the first character.
const specialNickChars = "-[]\\`^{}_|"

// IsValidNick exports isValidNick for command modules that need to
// validate a nick change post-registration (the NICK command's
// pre-registration path uses it directly within this package).
func IsValidNick(nick string) bool {
	return isValidNick(nick)
}

// isValidNick reports whether nick is syntactically acceptable: 1-32
// characters, first character a letter or one of the RFC "special"
// characters (never a digit), remaining characters alnum or special.
func isValidNick(nick string) bool {
	if len(nick) == 0 || len(nick) > 32 {
		return false
	}

	first := nick[0]
	if !isLetter(first) && !strings.ContainsRune(specialNickChars, rune(first)) {
		return false
	}

	for i := 1; i < len(nick); i++ {
		c := nick[i]
		if !isLetter(c) && !isDigit(c) && !strings.ContainsRune(specialNickChars, rune(c)) {
			return false
		}
	}

	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isValidIdent reports whether ident (already truncated to
// config.IdentLength) contains only characters the spec's USER
// validation allows: alnum plus "-.[]\^_{|}`".
func isValidIdent(ident string) bool {
	if len(ident) == 0 {
		return false
	}
	const extra = "-.[]\\^_{|}`"
	for i := 0; i < len(ident); i++ {
		c := ident[i]
		if !isLetter(c) && !isDigit(c) && !strings.ContainsRune(extra, rune(c)) {
			return false
		}
	}
	return true
}

// Dispatch is the single entry point for a decoded message arriving on
// c. It drives the registration state machine while unregistered, and
// hands off to DispatchCommand once registration has completed.
func (d *IRCd) Dispatch(c *conn.Connection, msg wire.Message) {
	c.Touch()

	if c.Phase != entity.PhaseRegistered {
		d.dispatchUnregistered(c, msg)
		return
	}

	d.DispatchCommand(c, msg)
}

func (d *IRCd) dispatchUnregistered(c *conn.Connection, msg wire.Message) {
	if !conn.AllowedBeforeRegistration(msg.Command) {
		d.SendNumeric(c, "*", ERR_NOTREGISTERED, "You have not registered")
		return
	}

	switch msg.Command {
	case "PASS":
		d.handlePass(c, msg)
	case "NICK":
		d.handleNick(c, msg)
	case "USER":
		d.handleUser(c, msg)
	case "SERVER":
		d.handleServer(c, msg)
	case "SERVICE":
		d.handleService(c, msg)
	case "PING":
		d.handlePing(c, msg)
	case "QUIT":
		_ = c.Socket.Close()
	case "CAPAB", "SVINFO":
		// TS6 handshake negotiation; this port does not implement
		// capability negotiation, so these are accepted and ignored
		// rather than rejected, tolerating peers that send them before
		// SERVER.
	}
}

func (d *IRCd) handlePass(c *conn.Connection, msg wire.Message) {
	if len(msg.Params) == 0 || len(msg.Params[0]) == 0 {
		d.SendNumeric(c, "*", ERR_NEEDMOREPARAMS, "PASS", "Not enough parameters")
		return
	}
	c.PendingPassword = msg.Params[0]
}

func (d *IRCd) handleNick(c *conn.Connection, msg wire.Message) {
	if len(msg.Params) == 0 || len(msg.Params[0]) == 0 {
		d.SendNumeric(c, "*", ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	nick := msg.Params[0]

	if !isValidNick(nick) {
		d.SendNumeric(c, "*", ERR_ERRONEUSNICKNAME, nick, "Erroneous nickname")
		return
	}
	if _, exists := d.LookupNick(nick); exists {
		d.SendNumeric(c, "*", ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		return
	}

	c.PendingNick = nick
	c.MaybeAdvance()

	if c.HasOwningCommand() {
		d.completeUserRegistration(c)
	}
}

func (d *IRCd) handleUser(c *conn.Connection, msg wire.Message) {
	if c.Phase == entity.PhaseRegistered {
		d.SendNumeric(c, "*", ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(msg.Params) < 4 {
		d.SendNumeric(c, "*", ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}

	identLen := d.Config.IdentLength
	ident := msg.Params[0]
	if len(ident) > identLen {
		ident = ident[:identLen]
	}
	if !isValidIdent(ident) {
		ident = "user"
	}

	gecos := msg.Params[3]
	if len(gecos) > d.Config.GECOSLength {
		gecos = gecos[:d.Config.GECOSLength]
	}
	if len(gecos) == 0 {
		d.SendNumeric(c, "*", ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}

	c.PendingIdent = ident
	c.PendingGECOS = gecos
	c.MaybeAdvance()

	if c.HasNick() {
		d.completeUserRegistration(c)
	}
}

// completeUserRegistration constructs the User entity once both NICK and
// USER have arrived. On a nick collision that raced between the NICK
// check and now, registration is rejected and the socket is closed.
func (d *IRCd) completeUserRegistration(c *conn.Connection) {
	uuid, err := d.NextUserID()
	if err != nil {
		_ = c.Socket.Close()
		return
	}

	host := entity.Hostmasks{
		Display: hostFor(c),
		Real:    hostFor(c),
		IP:      c.Socket.IP.String(),
	}

	hostmask := c.PendingNick + "!" + c.PendingIdent + "@" + host.Real
	if reason, banned := d.CheckKLine(hostmask); banned {
		c.Send(wire.Message{Command: "ERROR", Params: []string{"Closing Link: " + host.Real + " (" + reason + ")"}})
		_ = c.Socket.Close()
		return
	}

	u := entity.NewUser(uuid, c.PendingNick, c.PendingIdent, c.PendingGECOS, host, d.Self.ServerID, true)
	u.IdleSince = time.Now()

	if err := d.RegisterUser(u, c); err != nil {
		d.SendNumeric(c, "*", ERR_NICKNAMEINUSE, u.Nick, "Nickname is already in use")
		_ = c.Socket.Close()
		return
	}

	c.UserID = uuid
	c.Register(conn.KindUser)

	d.introduceToServers(u)
	d.sendWelcome(c, u)
}

// introduceToServers floods a UID burst for a newly registered local
// user to every linked peer, the outbound half of the same command
// rfc's uidCommand handles on the inbound side.
func (d *IRCd) introduceToServers(u *entity.User) {
	if len(d.AllPeers()) == 0 {
		return
	}

	d.Router.BroadcastToServers(d.AllPeers(), "", wire.Message{
		Prefix:  string(d.Self.ServerID),
		Command: "UID",
		Params: []string{
			u.Nick,
			"1",
			strconv.FormatInt(u.IdleSince.Unix(), 10),
			userModeString(u),
			u.Ident,
			u.Host.Real,
			u.Host.IP,
			string(u.UUID),
			u.GECOS,
		},
	})
}

// userModeString renders a user's mode set as a "+abc" string, the
// form UID's modes field and RPL_UMODEIS both use.
func userModeString(u *entity.User) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for letter := range u.Modes {
		sb.WriteByte(letter)
	}
	return sb.String()
}

// hostFor resolves the display hostname for a freshly accepted socket.
// This port does not perform reverse DNS; the literal IP is used as the
// hostname.
func hostFor(c *conn.Connection) string {
	return c.Socket.IP.String()
}

func (d *IRCd) sendWelcome(c *conn.Connection, u *entity.User) {
	d.SendNumeric(c, u.Nick, RPL_WELCOME, "Welcome to the "+d.Self.Name+" network, "+u.Nick)
	d.SendNumeric(c, u.Nick, RPL_YOURHOST, "Your host is "+d.Self.Name+", running version "+d.Self.Version)
	d.SendNumeric(c, u.Nick, RPL_CREATED, "This server was created "+d.Self.CreatedAt.Format(time.RFC1123))
	d.SendNumeric(c, u.Nick, RPL_MYINFO, d.Self.Name, d.Self.Version)
	d.SendNumeric(c, u.Nick, RPL_ISUPPORT, "NETWORK="+d.Self.Name, "CASEMAPPING=rfc1459", "are supported by this server")

	if len(d.Config.MOTD) == 0 {
		return
	}
	for _, line := range wrapMOTD(d.Config.MOTD, d.Config.MOTDLineLength) {
		d.SendNumeric(c, u.Nick, "372", ":- "+line)
	}
}

func wrapMOTD(motd string, width int) []string {
	if width <= 0 {
		width = 80
	}
	var lines []string
	for _, line := range strings.Split(motd, "\n") {
		for len(line) > width {
			lines = append(lines, line[:width])
			line = line[width:]
		}
		lines = append(lines, line)
	}
	return lines
}

func (d *IRCd) handleServer(c *conn.Connection, msg wire.Message) {
	if len(msg.Params) < 2 {
		_ = c.Socket.Close()
		return
	}

	name := msg.Params[0]

	serverID := entity.ServerID(name) // a full TS6 handshake would exchange a prior SID token; absent that, peers are keyed by name.
	peer := entity.NewPeer(serverID, name, entity.LinkInbound, 1, serverID)

	d.AddPeer(peer, c)
	c.ServerID = serverID
	c.Register(conn.KindServer)
}

func (d *IRCd) handleService(c *conn.Connection, msg wire.Message) {
	if len(msg.Params) == 0 {
		_ = c.Socket.Close()
		return
	}
	c.Register(conn.KindService)
}

func (d *IRCd) handlePing(c *conn.Connection, msg wire.Message) {
	c.Send(wire.Message{
		Prefix:  d.Self.Name,
		Command: "PONG",
		Params:  append([]string{d.Self.Name}, msg.Params...),
	})
}
