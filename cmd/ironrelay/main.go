// Command ironrelay runs the daemon: it loads configuration, loads the
// configured modules, binds the client/server listeners, and drives the
// single cooperative event loop that is the concurrency model's hard
// requirement (spec section 5) -- every accepted socket's read/write
// loop runs on its own goroutine, but all protocol dispatch, timers, and
// state mutation happen on this one goroutine.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/horgh/ironrelay/internal/config"
	"github.com/horgh/ironrelay/internal/conn"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/listener"
	"github.com/horgh/ironrelay/internal/module"
	"github.com/horgh/ironrelay/internal/modules/banmode"
	"github.com/horgh/ironrelay/internal/modules/connlimit"
	"github.com/horgh/ironrelay/internal/modules/rfc"
	"github.com/horgh/ironrelay/internal/modules/services"
	"github.com/horgh/ironrelay/internal/router"
	"github.com/horgh/ironrelay/internal/wire"
)

// Args are the daemon's command line arguments.
type Args struct {
	ConfigFile string
	ServerName string
	SID        string
}

func getArgs() *Args {
	configFile := flag.String("conf", "", "Configuration file.")
	serverName := flag.String("server-name", "", "Server name. Overrides name from config.")
	sid := flag.String("sid", "", "Server ID. Defaults to 1AB.")

	flag.Parse()

	if len(*configFile) == 0 {
		printUsage(fmt.Errorf("you must provide a configuration file"))
		return nil
	}

	configPath, err := filepath.Abs(*configFile)
	if err != nil {
		printUsage(fmt.Errorf("unable to determine path to the configuration file: %s", err))
		return nil
	}

	return &Args{ConfigFile: configPath, ServerName: *serverName, SID: *sid}
}

func printUsage(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
	_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <arguments>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)

	args := getArgs()
	if args == nil {
		os.Exit(1)
	}

	doc, err := config.Load(args.ConfigFile)
	if err != nil {
		log.Fatalf("Loading configuration: %s", err)
	}

	sid := entity.ServerID(args.SID)
	if len(sid) == 0 {
		sid = "1AB"
	}
	name := doc.Name
	if len(args.ServerName) > 0 {
		name = args.ServerName
	}

	self := entity.Self{
		ServerID:  sid,
		Name:      name,
		Version:   "ironrelay-0.1",
		CreatedAt: time.Now(),
	}

	d := ircd.New(doc, self)
	for mask, reason := range doc.KLines {
		d.AddKLine(mask, reason)
	}

	if err := loadModules(d, doc); err != nil {
		log.Fatalf("Loading modules: %s", err)
	}

	dm, err := newDaemon(d, doc, args.ConfigFile)
	if err != nil {
		log.Fatalf("Starting listeners: %s", err)
	}

	dm.run()

	log.Printf("Server shut down cleanly.")
}

// builtinModules is the name->constructor table main.go loads from, one
// entry per optional package under internal/modules (the core rfc
// module is loaded separately by loadModules). A config's "modules" list
// names a subset of these; unknown names are a fatal config error, same
// as an unresolvable module name would be in the original.
func builtinModules() map[string]module.Module {
	return map[string]module.Module{
		"banmode":   banmode.New(),
		"connlimit": connlimit.New(),
		"services":  services.New(services.NewMemoryStore()),
	}
}

// loadModules loads the always-on rfc core module, then every module
// doc.Modules names, hooking each to d before Loader.Load runs (the
// module contract's HookIRCd must happen before a module's
// ChannelModes/UserModes/Actions are collected, since some modules --
// banmode in particular -- read d inside those methods).
func loadModules(d *ircd.IRCd, doc *config.Document) error {
	core := rfc.New()
	core.HookIRCd(d)
	if err := d.Loader.Load(core); err != nil {
		return err
	}

	available := builtinModules()
	for _, name := range doc.Modules {
		m, ok := available[name]
		if !ok {
			return fmt.Errorf("unknown module %q", name)
		}
		m.HookIRCd(d)
		if err := m.VerifyConfig(doc.Extra); err != nil {
			return fmt.Errorf("module %q: %s", name, err)
		}
		if err := d.Loader.Load(m); err != nil {
			return err
		}
	}

	return nil
}

// daemon owns the bound listeners and the single event-loop goroutine
// that consumes everything they and their connections produce.
type daemon struct {
	ircd       *ircd.IRCd
	doc        *config.Document
	configPath string

	listeners []*listener.Listener
	accepted  chan listener.Accepted
	events    chan conn.Event
	outbound  chan outboundConn
	shutdown  chan os.Signal
	rehash    chan os.Signal
}

// outboundConn is what CONNECT's background dialer (ircd.DialAndHandshake)
// hands back across to the event-loop goroutine: the dial and PASS/SERVER
// handshake write happen off-loop since they block on the network, but
// tracking the resulting socket happens here, same as an accepted one.
type outboundConn struct {
	conn   net.Conn
	secure bool
}

func newDaemon(d *ircd.IRCd, doc *config.Document, configPath string) (*daemon, error) {
	dm := &daemon{
		ircd:       d,
		doc:        doc,
		configPath: configPath,
		accepted:   make(chan listener.Accepted, 64),
		events:     make(chan conn.Event, 256),
		outbound:   make(chan outboundConn, 8),
		shutdown:   make(chan os.Signal, 1),
		rehash:     make(chan os.Signal, 1),
	}

	d.OnOutboundConnect = func(nc net.Conn, secure bool) {
		dm.outbound <- outboundConn{conn: nc, secure: secure}
	}

	signal.Notify(dm.shutdown, os.Interrupt, syscall.SIGTERM)
	signal.Notify(dm.rehash, syscall.SIGHUP)

	for _, raw := range doc.BindClient {
		if err := dm.bind(raw, false); err != nil {
			return nil, err
		}
	}
	for _, raw := range doc.BindServer {
		if err := dm.bind(raw, true); err != nil {
			return nil, err
		}
	}

	if len(dm.listeners) == 0 {
		return nil, fmt.Errorf("no port could be bound")
	}

	return dm, nil
}

func (dm *daemon) bind(raw string, isServerPort bool) error {
	ep, err := config.ParseEndpoint(raw)
	if err != nil {
		log.Printf("Skipping invalid bind endpoint %q: %s", raw, err)
		return nil
	}

	ln, err := listener.Bind(ep, isServerPort)
	if err != nil {
		// Bind failure does not crash the daemon unless it leaves zero
		// ports bound (checked by the caller once every endpoint has been
		// attempted).
		log.Printf("Unable to bind %s: %s", raw, err)
		return nil
	}

	dm.listeners = append(dm.listeners, ln)
	go ln.Serve(dm.accepted)
	return nil
}

// run drives the event loop until a shutdown signal arrives.
func (dm *daemon) run() {
	dataTicker := time.NewTicker(conn.DataCheckInterval)
	defer dataTicker.Stop()

	interval := pingInterval(dm.doc)
	pingTicker := time.NewTicker(interval)
	defer pingTicker.Stop()

	for {
		select {
		case a := <-dm.accepted:
			dm.onAccept(a)

		case ev := <-dm.events:
			dm.onEvent(ev)

		case oc := <-dm.outbound:
			dm.onOutbound(oc)

		case <-dataTicker.C:
			dm.checkData()

		case <-pingTicker.C:
			dm.checkPings(interval, timeoutDelay(dm.doc))

		case <-dm.rehash:
			dm.onRehash()

		case <-dm.shutdown:
			dm.onShutdown()
			return
		}
	}
}

func pingInterval(doc *config.Document) time.Duration {
	if doc.PingInterval <= 0 {
		return conn.DefaultPingInterval
	}
	return time.Duration(doc.PingInterval) * time.Second
}

func timeoutDelay(doc *config.Document) time.Duration {
	if doc.TimeoutDelay <= 0 {
		return conn.DefaultTimeoutDelay
	}
	return time.Duration(doc.TimeoutDelay) * time.Second
}

func (dm *daemon) onAccept(a listener.Accepted) {
	dm.track(a.Conn, a.Endpoint.Proto == "ssl")
}

// onOutbound is onAccept's counterpart for a CONNECT-initiated link:
// ircd.DialAndHandshake has already dialed and written the PASS/SERVER
// handshake by the time the socket reaches here, so all that is left is
// the same bookkeeping an accepted connection gets.
func (dm *daemon) onOutbound(oc outboundConn) {
	dm.track(oc.conn, oc.secure)
}

// track wraps an established net.Conn (accepted or dialed out) in a
// Socket/Connection pair, registers it, and starts its reader/writer
// goroutines feeding the shared event channel.
func (dm *daemon) track(nc net.Conn, secure bool) {
	host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
	if err != nil {
		_ = nc.Close()
		return
	}

	if !dm.ircd.PeerLimiter.Allow(host) {
		_ = nc.Close()
		return
	}

	ioWait := timeoutDelay(dm.doc)

	sock, err := conn.NewSocket(nc, ioWait, secure)
	if err != nil {
		log.Printf("Accepting connection: %s", err)
		dm.ircd.PeerLimiter.Release(host)
		_ = nc.Close()
		return
	}

	c := conn.NewConnection(dm.ircd.NextConnID(), sock)
	dm.ircd.AddConnection(c)

	// closed is never signaled from outside this loop; a torn-down
	// connection's socket close is what unblocks ReadLoop's pending
	// read, at which point it posts its own EventDead and returns.
	closed := make(chan struct{})

	go c.ReadLoop(dm.events, closed)
	go c.WriteLoop(dm.events)
}

func (dm *daemon) onEvent(ev conn.Event) {
	switch ev.Type {
	case conn.EventMessage:
		dm.ircd.Dispatch(ev.Connection, ev.Message)
	case conn.EventDead:
		dm.onDead(ev.Connection)
	}
}

func (dm *daemon) onDead(c *conn.Connection) {
	host, _, _ := net.SplitHostPort(c.Socket.RemoteAddr().String())
	dm.ircd.PeerLimiter.Release(host)
	dm.ircd.RemoveConnection(c.ID)

	switch c.Kind {
	case conn.KindUser:
		if u, ok := dm.ircd.LookupUser(c.UserID); ok {
			dm.ircd.QuitUser(u, "Connection reset")
		}
	case conn.KindServer:
		dm.ircd.RemovePeer(c.ServerID)
	}

	_ = c.Socket.Close()
}

// checkData resets the rolling byte counter every connection exposes to
// rate-limiting modules. This port carries no rate-limiter module, and
// nothing adds read bytes to the counter, so it always reads zero.
func (dm *daemon) checkData() {
	for _, c := range dm.ircd.Connections() {
		c.ResetDataWindow()
	}
}

// checkPings sweeps every connection: local users go through
// router.PingUser (keyed off their own pingtime/pongtime cache so a
// PONG on any connection resets the cycle), peers through
// router.PingPeer, and anything still mid-registration uses the
// simpler per-Connection conn.CheckPing since it has no owning entity
// yet.
func (dm *daemon) checkPings(pingInterval, timeoutDelay time.Duration) {
	now := time.Now()

	for _, c := range dm.ircd.Connections() {
		switch c.Kind {
		case conn.KindUser:
			u, ok := dm.ircd.LookupUser(c.UserID)
			if !ok {
				continue
			}
			switch router.PingUser(u, c.LastMessageAt, now) {
			case router.PingOut:
				c.Send(wire.Message{Prefix: dm.ircd.Self.Name, Command: "PING", Params: []string{dm.ircd.Self.Name}})
			case router.PingTimedOut:
				dm.ircd.QuitUser(u, "Ping timeout")
			}

		case conn.KindServer:
			p, ok := dm.ircd.Peer(c.ServerID)
			if !ok {
				continue
			}
			switch router.PingPeer(p, now) {
			case router.PingOut:
				c.Send(wire.Message{Prefix: dm.ircd.Self.Name, Command: "PING", Params: []string{dm.ircd.Self.Name}})
			case router.PingTimedOut:
				dm.ircd.RemovePeer(p.ServerID)
				_ = c.Socket.Close()
			}

		default:
			switch c.CheckPing(now, pingInterval, timeoutDelay) {
			case conn.PingSent:
				c.Send(wire.Message{Prefix: dm.ircd.Self.Name, Command: "PING", Params: []string{dm.ircd.Self.Name}})
			case conn.PingTimeout:
				_ = c.Socket.Close()
			}
		}
	}
}

// onRehash re-reads the configuration document, closes and rebinds
// every listener when the bind_client/bind_server lists changed, and
// notifies every loaded module, per spec section 6.
func (dm *daemon) onRehash() {
	doc, err := config.Load(dm.configPath)
	if err != nil {
		log.Printf("Rehash: unable to reload configuration: %s", err)
		return
	}

	rebind := fmt.Sprint(dm.doc.BindClient, dm.doc.BindServer) != fmt.Sprint(doc.BindClient, doc.BindServer)

	*dm.ircd.Config = *doc
	dm.doc = doc

	if rebind {
		for _, ln := range dm.listeners {
			_ = ln.Close()
		}
		dm.listeners = nil
		for _, raw := range doc.BindClient {
			_ = dm.bind(raw, false)
		}
		for _, raw := range doc.BindServer {
			_ = dm.bind(raw, true)
		}
	}

	for _, err := range dm.ircd.Loader.Rehash() {
		log.Printf("Rehash: module error: %s", err)
	}

	log.Printf("Rehashed configuration.")
}

// onShutdown issues a QUIT for every local user, closes every tracked
// connection, and stops accepting new ones.
func (dm *daemon) onShutdown() {
	for _, ln := range dm.listeners {
		_ = ln.Close()
	}

	_ = dm.ircd.Shutdown("Server shutting down", nil)
}
