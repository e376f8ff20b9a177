package conn

import (
	"github.com/horgh/ironrelay/internal/wire"
)

// EventType tags what kind of Event a read/write goroutine posted to
// the single event-loop goroutine.
type EventType int

const (
	// EventMessage carries a successfully decoded line from the peer.
	EventMessage EventType = iota
	// EventDead means the connection's reader or writer hit an
	// unrecoverable error (or the peer closed) and should be reaped.
	EventDead
)

// Event is what a Connection's I/O goroutines post to the central event
// channel; all further processing happens back on the single
// cooperative event-loop goroutine, never in these goroutines
// themselves.
type Event struct {
	Type       EventType
	Connection *Connection
	Message    wire.Message
}

// ReadLoop endlessly reads lines from c's socket, decodes them, and
// posts one Event per line (or one EventDead on failure) to events. It
// returns once the connection is dead or closed is closed.
//
// Malformed lines are dropped, not treated as fatal: a bad line must not
// disconnect the client.
func (c *Connection) ReadLoop(events chan<- Event, closed <-chan struct{}) {
	for {
		select {
		case <-closed:
			return
		default:
		}

		line, err := c.Socket.ReadLine()
		if err != nil {
			events <- Event{Type: EventDead, Connection: c}
			return
		}

		msg, err := wire.Decode(line)
		if err != nil {
			continue
		}

		events <- Event{Type: EventMessage, Connection: c, Message: msg}
	}
}

// WriteLoop drains c.WriteChan, encoding and writing each message to the
// socket, until the channel is closed or a write fails.
func (c *Connection) WriteLoop(events chan<- Event) {
	for msg := range c.WriteChan {
		line, _ := msg.Encode() // ErrTruncated is non-fatal; line is still sent.

		if err := c.Socket.WriteLine(line); err != nil {
			events <- Event{Type: EventDead, Connection: c}
			return
		}
	}
}
