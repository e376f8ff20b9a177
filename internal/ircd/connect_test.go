package ircd

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/horgh/ironrelay/internal/config"
	"github.com/horgh/ironrelay/internal/entity"
)

func TestPrepareLinkRejectsUnknownServer(t *testing.T) {
	d := newTestIRCd(t)
	d.OnOutboundConnect = func(net.Conn, bool) {}

	_, err := d.PrepareLink("irc2.example.org")
	require.Error(t, err)
	require.Contains(t, err.Error(), ErrUnknownLink.Error())
}

func TestPrepareLinkRejectsAlreadyLinked(t *testing.T) {
	d := newTestIRCd(t)
	d.OnOutboundConnect = func(net.Conn, bool) {}
	d.Config.Links = map[string]config.LinkSpec{
		"irc2.example.org": {Hostname: "127.0.0.1", Port: 6667},
	}
	d.AddPeer(entity.NewPeer("1BB", "irc2.example.org", entity.LinkOutbound, 1, "1BB"), nil)

	_, err := d.PrepareLink("irc2.example.org")
	require.Error(t, err)
	require.Contains(t, err.Error(), ErrAlreadyLinked.Error())
}

func TestPrepareLinkRequiresOutboundConnectWired(t *testing.T) {
	d := newTestIRCd(t)
	d.Config.Links = map[string]config.LinkSpec{
		"irc2.example.org": {Hostname: "127.0.0.1", Port: 6667},
	}

	_, err := d.PrepareLink("irc2.example.org")
	require.Error(t, err)
}

func TestPrepareLinkAcceptsConfiguredServer(t *testing.T) {
	d := newTestIRCd(t)
	d.OnOutboundConnect = func(net.Conn, bool) {}
	d.Config.Links = map[string]config.LinkSpec{
		"irc2.example.org": {Hostname: "127.0.0.1", Port: 6667, Pass: "secret"},
	}

	spec, err := d.PrepareLink("irc2.example.org")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", spec.Hostname)
	require.Equal(t, "secret", spec.Pass)
}

func TestDialAndHandshakeSendsPassAndServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		n, _ := c.Read(buf)
		accepted <- buf[:n]
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := net.LookupPort("tcp", port)
	require.NoError(t, err)

	spec := config.LinkSpec{Hostname: host, Port: portNum, Pass: "secret"}

	var gotConn net.Conn
	err = DialAndHandshake(spec, "irc.test", "1AB", func(c net.Conn, secure bool) {
		gotConn = c
		require.False(t, secure)
	})
	require.NoError(t, err)
	require.NotNil(t, gotConn)
	defer gotConn.Close()

	data := <-accepted
	require.Contains(t, string(data), "PASS secret TS 6 1AB")
	require.Contains(t, string(data), "SERVER irc.test 1 ironrelay")
}
