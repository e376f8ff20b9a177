// Package router implements local channel fan-out and peer server
// fan-out, plus the dual user/server ping-pong bookkeeping.
package router

import (
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

// Sender abstracts delivering one message to one connection; internal/
// ircd supplies a concrete implementation backed by conn.Connection.Send.
type Sender interface {
	SendTo(userID entity.UserID, msg wire.Message)
	SendToServer(serverID entity.ServerID, msg wire.Message)
}

// Router fans messages out to local channel members and to linked
// peer servers.
type Router struct {
	sender Sender
}

// NewRouter constructs a Router that delivers through sender.
func NewRouter(sender Sender) *Router {
	return &Router{sender: sender}
}

// SendList is the mutable local delivery list a broadcast builds before
// fan-out: action handlers (e.g. ban mode) may remove entries from it to
// suppress delivery to specific members, per the "runActionProcessing"
// invocation mode.
type SendList struct {
	Users []*entity.User
}

// Remove drops u from the list, if present.
func (l *SendList) Remove(u *entity.User) {
	for i, existing := range l.Users {
		if existing.UUID == u.UUID {
			l.Users = append(l.Users[:i], l.Users[i+1:]...)
			return
		}
	}
}

// BroadcastToChannel builds a SendList from channel's current members
// (minus except, if non-nil, typically the sender when they should not
// see their own wire echo via this path), runs processing through
// mutate, and delivers msg to whoever remains.
func (r *Router) BroadcastToChannel(channel *entity.Channel, except *entity.User, msg wire.Message, mutate func(*SendList)) {
	list := &SendList{}
	for _, m := range channel.Users {
		if except != nil && m.User.UUID == except.UUID {
			continue
		}
		list.Users = append(list.Users, m.User)
	}

	if mutate != nil {
		mutate(list)
	}

	for _, u := range list.Users {
		r.sender.SendTo(u.UUID, msg)
	}
}

// BroadcastToServers writes msg to every directly linked peer other than
// fromServer (the link the message arrived on, if any), preserving
// per-link send order. Cross-link ordering across different peers is
// not guaranteed, matching the concurrency model's stated tolerance.
func (r *Router) BroadcastToServers(peers []*entity.Peer, fromServer entity.ServerID, msg wire.Message) {
	for _, p := range peers {
		if p.ServerID == fromServer {
			continue
		}
		r.sender.SendToServer(p.ServerID, msg)
	}
}
