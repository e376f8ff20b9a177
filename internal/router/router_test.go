package router

import (
	"testing"
	"time"

	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

type fakeSender struct {
	sent       []wire.Message
	sentServer []entity.ServerID
}

func (f *fakeSender) SendTo(userID entity.UserID, msg wire.Message) {
	f.sent = append(f.sent, msg)
}

func (f *fakeSender) SendToServer(serverID entity.ServerID, msg wire.Message) {
	f.sentServer = append(f.sentServer, serverID)
}

func TestBroadcastToChannelExceptAndMutate(t *testing.T) {
	sender := &fakeSender{}
	r := NewRouter(sender)

	ch := entity.NewChannel("#test")
	alice := entity.NewUser("1ABAAAAAA", "alice", "a", "Alice", entity.Hostmasks{}, "1AB", true)
	bob := entity.NewUser("1ABAAAAAB", "bob", "b", "Bob", entity.Hostmasks{}, "1AB", true)
	carol := entity.NewUser("1ABAAAAAC", "carol", "c", "Carol", entity.Hostmasks{}, "1AB", true)
	ch.Join(alice)
	ch.Join(bob)
	ch.Join(carol)

	r.BroadcastToChannel(ch, alice, wire.Message{Command: "PRIVMSG"}, func(list *SendList) {
		list.Remove(carol)
	})

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1 (bob only)", len(sender.sent))
	}
}

func TestBroadcastToServersSkipsOrigin(t *testing.T) {
	sender := &fakeSender{}
	r := NewRouter(sender)

	peers := []*entity.Peer{
		entity.NewPeer("1AA", "a.example.org", entity.LinkOutbound, 1, "1AA"),
		entity.NewPeer("1BB", "b.example.org", entity.LinkOutbound, 1, "1BB"),
	}

	r.BroadcastToServers(peers, "1AA", wire.Message{Command: "SJOIN"})

	if len(sender.sentServer) != 1 || sender.sentServer[0] != "1BB" {
		t.Fatalf("sentServer = %v, want [1BB]", sender.sentServer)
	}
}

func TestPingUserStates(t *testing.T) {
	u := entity.NewUser("1ABAAAAAA", "alice", "a", "Alice", entity.Hostmasks{}, "1AB", true)

	now := time.Now()
	if got := PingUser(u, now.Add(-time.Hour), now); got != PingOut {
		t.Fatalf("first PingUser() = %v, want PingOut", got)
	}

	RecordPong(u.Cache, now)
	if got := PingUser(u, now.Add(-time.Hour), now.Add(time.Minute)); got != PingOut {
		t.Fatalf("second PingUser() = %v, want PingOut (pong after ping)", got)
	}

	past := now.Add(time.Minute)
	if got := PingUser(u, past.Add(-time.Hour), past); got != PingTimedOut {
		t.Fatalf("PingUser() = %v, want PingTimedOut when no pong followed the last ping", got)
	}
}
