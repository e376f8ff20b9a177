package ircd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/horgh/ironrelay/internal/config"
	"github.com/horgh/ironrelay/internal/entity"
)

func newTestIRCd(t *testing.T) *IRCd {
	t.Helper()
	doc := &config.Document{}
	self := entity.Self{ServerID: "1AB", Name: "irc.test"}
	return New(doc, self)
}

func joinUser(t *testing.T, d *IRCd, nick string) *entity.User {
	t.Helper()
	uuid, err := entity.NextUserID(d.Self.ServerID, d.nextUserSeq)
	require.NoError(t, err)
	d.nextUserSeq++

	u := entity.NewUser(uuid, nick, nick, nick, entity.Hostmasks{Display: "host"}, d.Self.ServerID, true)
	require.NoError(t, d.RegisterUser(u, nil))
	return u
}

func TestQuitUserRemovesUserAndKeepsOtherMembers(t *testing.T) {
	d := newTestIRCd(t)

	alice := joinUser(t, d, "alice")
	bob := joinUser(t, d, "bob")

	ch, _, _ := d.JoinChannel(alice, "#chat")
	_, _, _ = d.JoinChannel(bob, "#chat")

	d.QuitUser(alice, "done")

	require.NotContains(t, d.Users, alice.UUID, "quit user should be removed from the registry")
	_, onChannel := ch.Users[alice.UUID]
	require.False(t, onChannel, "quit user should be parted from every channel")

	_, stillThere := d.Users[bob.UUID]
	require.True(t, stillThere, "other members must survive the quitting user's teardown")
}

func TestQuitUserTombstonesNickForRaceTolerance(t *testing.T) {
	d := newTestIRCd(t)

	alice := joinUser(t, d, "alice")
	d.QuitUser(alice, "bye")

	require.True(t, d.RecentlyQuitUser("alice"), "nick should be tombstoned immediately after quitting")
}

func TestShutdownQuitsEveryLocalUser(t *testing.T) {
	d := newTestIRCd(t)

	joinUser(t, d, "alice")
	joinUser(t, d, "bob")

	require.NoError(t, d.Shutdown("going away", nil))

	require.Empty(t, d.Users, "all local users should be removed on shutdown")
	require.True(t, d.RecentlyQuitUser("alice"))
	require.True(t, d.RecentlyQuitUser("bob"))
}
