package ircd

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/horgh/ironrelay/internal/config"
	"github.com/horgh/ironrelay/internal/wire"
)

// dialTimeout bounds an outbound CONNECT attempt.
const dialTimeout = 10 * time.Second

// ErrUnknownLink is returned by PrepareLink when name has no configured
// LinkSpec.
var ErrUnknownLink = errors.New("no link configured for server")

// ErrAlreadyLinked is returned by PrepareLink when name is already a
// connected peer.
var ErrAlreadyLinked = errors.New("already linked to server")

// OnOutboundConnect is set by cmd/ironrelay's daemon so a CONNECT
// command's freshly dialed socket joins the same central event loop an
// accepted inbound connection would: wrapped in a Connection, tracked,
// and fed by a reader/writer goroutine pair. Implementations must be
// safe to call from any goroutine (a channel send, not a direct mutation).
type OnOutboundConnect func(c net.Conn, secure bool)

// PrepareLink validates that name names a configured, not-already-linked
// server, and returns its LinkSpec. It touches only Config/Peers, so it
// must be called from the event-loop goroutine (i.e. from a command's
// Execute, never from the background goroutine that does the actual
// dial) to avoid racing the loop's own reads/writes of Peers.
func (d *IRCd) PrepareLink(name string) (config.LinkSpec, error) {
	spec, ok := d.Config.Links[name]
	if !ok {
		return config.LinkSpec{}, errors.Wrapf(ErrUnknownLink, "%q", name)
	}

	for _, p := range d.Peers {
		if p.Name == name {
			return config.LinkSpec{}, errors.Wrapf(ErrAlreadyLinked, "%q", name)
		}
	}

	if d.OnOutboundConnect == nil {
		return config.LinkSpec{}, errors.New("outbound connect not wired")
	}

	return spec, nil
}

// DialAndHandshake dials spec's address, writes the PASS/SERVER
// handshake lines identifying this server as selfName/selfSID, and hands
// the raw net.Conn to onConnect. It touches no IRCd state, so unlike
// PrepareLink it is safe to run from a background goroutine (callers
// driven by the CONNECT command do exactly that, so a slow or dead
// remote cannot stall the event loop).
func DialAndHandshake(spec config.LinkSpec, selfName, selfSID string, onConnect OnOutboundConnect) error {
	addr := net.JoinHostPort(spec.Hostname, strconv.Itoa(spec.Port))
	nc, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return errors.Wrapf(err, "dialing %s", addr)
	}

	if spec.Pass != "" {
		if err := writeLine(nc, wire.Message{Command: "PASS", Params: []string{spec.Pass, "TS", "6", selfSID}}); err != nil {
			_ = nc.Close()
			return errors.Wrap(err, "writing PASS")
		}
	}
	if err := writeLine(nc, wire.Message{Command: "SERVER", Params: []string{selfName, "1", "ironrelay"}}); err != nil {
		_ = nc.Close()
		return errors.Wrap(err, "writing SERVER")
	}

	onConnect(nc, spec.TLS)
	return nil
}

// writeLine encodes msg and writes it terminated with CRLF, the raw
// handshake lines DialAndHandshake sends before handing the conn off to
// the normal Connection/event-loop machinery.
func writeLine(nc net.Conn, msg wire.Message) error {
	line, err := msg.Encode()
	if err != nil && err != wire.ErrTruncated {
		return err
	}
	_, err = nc.Write([]byte(line + "\r\n"))
	return err
}
