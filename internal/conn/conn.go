// Package conn implements the per-socket Connection: framing I/O,
// registration state, and the per-connection timers.
package conn

import (
	"bufio"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Socket wraps a net.Conn with buffered line I/O and a read/write
// deadline.
type Socket struct {
	conn   net.Conn
	rw     *bufio.ReadWriter
	ioWait time.Duration

	IP     net.IP
	Secure bool
}

// NewSocket wraps conn, resolving its remote IP up front.
func NewSocket(c net.Conn, ioWait time.Duration, secure bool) (*Socket, error) {
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return nil, errors.Wrap(err, "resolving remote address")
	}

	return &Socket{
		conn:   c,
		rw:     bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c)),
		ioWait: ioWait,
		IP:     net.ParseIP(host),
		Secure: secure,
	}, nil
}

// Close closes the underlying connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// RemoteAddr returns the remote network address.
func (s *Socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// ReadLine reads a single newline-terminated line, applying a fresh
// deadline each call so a stalled peer is eventually dropped.
func (s *Socket) ReadLine() (string, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.ioWait)); err != nil {
		return "", errors.Wrap(err, "setting read deadline")
	}

	line, err := s.rw.ReadString('\n')
	if err != nil {
		return "", err
	}

	return line, nil
}

// WriteLine writes s, appending a trailing CRLF.
func (s *Socket) WriteLine(line string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.ioWait)); err != nil {
		return errors.Wrap(err, "setting write deadline")
	}

	if _, err := s.rw.WriteString(line); err != nil {
		return err
	}
	if _, err := s.rw.WriteString("\r\n"); err != nil {
		return err
	}

	return s.rw.Flush()
}

func (s *Socket) String() string {
	return s.conn.RemoteAddr().String()
}
