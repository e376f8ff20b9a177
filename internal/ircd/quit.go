package ircd

import (
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

// QuitUser broadcasts a QUIT with reason to every distinct member of
// u's shared channels and to every linked peer, then tears down u's
// state (closing its local connection, if any). Command modules
// (rfc's QUIT handler) and server-initiated disconnects (ping timeout,
// KILL) both funnel through this so the wire behavior is identical
// regardless of who decided the user should leave.
func (d *IRCd) QuitUser(u *entity.User, reason string) {
	msg := wire.Message{Prefix: hostmaskPrefix(u), Command: "QUIT", Params: []string{reason}}

	informed := map[entity.UserID]bool{u.UUID: true}
	for _, ch := range u.Channels {
		for _, m := range ch.Users {
			if informed[m.User.UUID] {
				continue
			}
			informed[m.User.UUID] = true
			d.SendTo(m.User.UUID, msg)
		}
	}

	d.Router.BroadcastToServers(d.AllPeers(), u.Server, msg)
	d.CloseUser(u, reason)
}

// hostmaskPrefix renders u's nick!ident@host prefix for messages u
// originates.
func hostmaskPrefix(u *entity.User) string {
	return u.Nick + "!" + u.Ident + "@" + u.Host.Display
}
