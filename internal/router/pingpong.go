package router

import (
	"time"

	"github.com/horgh/ironrelay/internal/entity"
)

// pingCacheKey/pongCacheKey are the User.Cache/Peer.Cache keys the dual
// ping-pong bookkeeping uses, mirroring the original's "pingtime"/
// "pongtime" cache entries.
const (
	pingCacheKey = "pingtime"
	pongCacheKey = "pongtime"
)

// PingDecision tells the caller what action a ping sweep produced for
// one user or peer.
type PingDecision int

const (
	// PingSkip means the target has been active since the last pong; no
	// PING is needed this tick.
	PingSkip PingDecision = iota
	// PingOut means a PING should be sent now.
	PingOut
	// PingTimedOut means the last PONG predates the last PING, so the
	// connection should be disconnected with "Ping timeout".
	PingTimedOut
)

// PingUser decides what to do for u on this tick, and records the new
// pingtime in its cache when a PING is sent or the cycle resets. idle
// is u's LastActivityTime (mirroring idleSince in the original).
func PingUser(u *entity.User, idle time.Time, now time.Time) PingDecision {
	pingTime, pongTime := pingPongTimes(u.Cache, now)

	if pongTime.Before(pingTime) {
		return PingTimedOut
	}

	if idle.After(pongTime) {
		u.Cache[pingCacheKey] = now
		u.Cache[pongCacheKey] = now
		return PingSkip
	}

	u.Cache[pingCacheKey] = now
	return PingOut
}

// PingPeer is PingUser's server-link analogue.
func PingPeer(p *entity.Peer, now time.Time) PingDecision {
	pingTime, pongTime := pingPongTimes(p.Cache, now)

	if pongTime.Before(pingTime) {
		return PingTimedOut
	}

	p.Cache[pingCacheKey] = now
	return PingOut
}

// RecordPong stamps the pongtime for a user or peer cache after a
// PONG is received.
func RecordPong(cache map[string]interface{}, now time.Time) {
	cache[pongCacheKey] = now
}

func pingPongTimes(cache map[string]interface{}, now time.Time) (time.Time, time.Time) {
	pingTime, ok1 := cache[pingCacheKey].(time.Time)
	pongTime, ok2 := cache[pongCacheKey].(time.Time)
	if !ok1 || !ok2 {
		cache[pingCacheKey] = now
		cache[pongCacheKey] = now
		return now, now
	}
	return pingTime, pongTime
}
