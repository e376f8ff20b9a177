package entity

import "time"

// LinkDirection records which side of a server-to-server link initiated
// the connection.
type LinkDirection int

const (
	// LinkOutbound means this server connected out to the peer.
	LinkOutbound LinkDirection = iota
	// LinkInbound means the peer connected in to this server.
	LinkInbound
)

// Self describes this process's own server identity. It owns the
// process-wide entity registries (held by internal/ircd, not here).
type Self struct {
	ServerID  ServerID
	Name      string
	Version   string
	CreatedAt time.Time
}

// Peer is a linked remote server, reachable via zero or more
// intermediate hops.
type Peer struct {
	ServerID ServerID
	Name     string

	// Cache holds arbitrary per-module state about the peer, mirroring
	// User.Cache (e.g. ping/pong bookkeeping).
	Cache map[string]interface{}

	Direction LinkDirection

	// HopCount is the number of server-to-server links between this
	// server and the peer; 1 for a directly linked peer.
	HopCount int

	// Via names the directly-connected peer this server routes through
	// to reach it; equal to ServerID itself when HopCount is 1.
	Via ServerID
}

// NewPeer constructs a Peer record for a newly linked or learned-about
// server.
func NewPeer(id ServerID, name string, direction LinkDirection, hopCount int, via ServerID) *Peer {
	return &Peer{
		ServerID:  id,
		Name:      name,
		Cache:     map[string]interface{}{},
		Direction: direction,
		HopCount:  hopCount,
		Via:       via,
	}
}
