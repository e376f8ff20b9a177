// Package listener implements the client/server port binders and the
// process-wide per-peer connection limit table.
package listener

import (
	"crypto/tls"
	"net"

	"github.com/pkg/errors"

	"github.com/horgh/ironrelay/internal/config"
)

// Accepted is one freshly accepted connection, handed off to the caller
// for handshake processing.
type Accepted struct {
	Conn     net.Conn
	Endpoint config.Endpoint
	// IsServerPort marks whether this came from a bind_server listener
	// (as opposed to bind_client).
	IsServerPort bool
}

// Listener owns one bound port and accepts connections from it onto a
// shared channel.
type Listener struct {
	ln       net.Listener
	endpoint config.Endpoint
	isServer bool
}

// Bind opens a listener for endpoint. "ssl" endpoints require a
// certKey parameter naming a combined cert+key PEM file.
func Bind(endpoint config.Endpoint, isServerPort bool) (*Listener, error) {
	addr := ":" + endpoint.Port

	var ln net.Listener
	var err error

	switch endpoint.Proto {
	case "tcp":
		ln, err = net.Listen("tcp", addr)
	case "ssl":
		certKey, ok := endpoint.Params["certKey"]
		if !ok {
			return nil, errors.Errorf("ssl endpoint on port %s missing certKey parameter", endpoint.Port)
		}
		cert, tlsErr := tls.LoadX509KeyPair(certKey, certKey)
		if tlsErr != nil {
			return nil, errors.Wrapf(tlsErr, "loading certificate for port %s", endpoint.Port)
		}
		ln, err = tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
	default:
		return nil, errors.Errorf("unknown endpoint protocol %q", endpoint.Proto)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", addr)
	}

	return &Listener{ln: ln, endpoint: endpoint, isServer: isServerPort}, nil
}

// Close stops accepting new connections on this listener.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Serve accepts connections in a loop, posting each to accepted, until
// Close is called (at which point Accept returns an error and Serve
// returns). This runs in its own goroutine per listener; only the
// accept and handoff happen off the single event-loop goroutine.
func (l *Listener) Serve(accepted chan<- Accepted) {
	for {
		c, err := l.ln.Accept()
		if err != nil {
			return
		}

		accepted <- Accepted{
			Conn:         c,
			Endpoint:     l.endpoint,
			IsServerPort: l.isServer,
		}
	}
}
