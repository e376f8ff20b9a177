package rfc

import (
	"strings"
	"time"

	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/router"
	"github.com/horgh/ironrelay/internal/wire"
)

// nickFromHostmask returns the nick portion of a "nick!ident@host"
// prefix, or the prefix unchanged if it carries no "!".
func nickFromHostmask(prefix string) string {
	if i := strings.IndexByte(prefix, '!'); i >= 0 {
		return prefix[:i]
	}
	return prefix
}

// relay flood-fills msg to every peer except the one it arrived on,
// the same loop-prevention BroadcastToServers already applies to
// locally originated traffic.
func relay(d *ircd.IRCd, fromServer entity.ServerID, msg wire.Message) {
	d.Router.BroadcastToServers(d.AllPeers(), fromServer, msg)
}

// uidCommand introduces a user registered on a remote peer. Parameters:
// <nick> <hopcount> <nick TS> <umodes> <ident> <host> <ip> <uuid> :<gecos>
type uidCommand struct{ mod *Module }

func (c *uidCommand) Name() string  { return "UID" }
func (c *uidCommand) Priority() int { return 0 }

type uidData struct {
	Nick, Ident, Host, IP, GECOS string
	UUID                         entity.UserID
	Modes                        string
	HopCount, NickTS             string
}

func (c *uidCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 9 {
		return nil, false, false
	}
	if c.mod.ircd.RecentlyQuitServer(fromServer) {
		return nil, true, false
	}
	return &uidData{
		Nick:     params[0],
		HopCount: params[1],
		NickTS:   params[2],
		Modes:    params[3],
		Ident:    params[4],
		Host:     params[5],
		IP:       params[6],
		UUID:     entity.UserID(params[7]),
		GECOS:    params[8],
	}, false, false
}

// Execute registers the remote user unless its nick collides with an
// existing one, in which case the introduction is simply dropped: this
// port does not implement a KILL command, so a colliding introduction
// never resolves in favor of the newer user the way full TS6 collision
// handling would.
func (c *uidCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	ud := data.(*uidData)
	d := c.mod.ircd

	if _, exists := d.LookupNick(ud.Nick); exists {
		return
	}

	host := entity.Hostmasks{Display: ud.Host, Real: ud.Host, IP: ud.IP}
	u := entity.NewUser(ud.UUID, ud.Nick, ud.Ident, ud.GECOS, host, entity.ServerID(sourceID), false)
	for i, m := range ud.Modes {
		if i == 0 {
			continue
		}
		if m == 'i' || m == 'o' || m == 'w' {
			u.Modes[byte(m)] = ""
		}
	}

	if err := d.RegisterUser(u, nil); err != nil {
		return
	}
	d.Actions.RunStandard("remoteregister", u)

	relay(d, fromServer, wire.Message{
		Prefix:  sourceID,
		Command: "UID",
		Params:  []string{ud.Nick, ud.HopCount, ud.NickTS, ud.Modes, ud.Ident, ud.Host, ud.IP, string(ud.UUID), ud.GECOS},
	})
}

func (c *uidCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *uidCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverNickCommand renames a remote user already known via UID.
// Parameters: <new nick>
type serverNickCommand struct{ mod *Module }

func (c *serverNickCommand) Name() string  { return "NICK" }
func (c *serverNickCommand) Priority() int { return 0 }

type serverNickData struct {
	User    *entity.User
	OldNick string
	NewNick string
}

func (c *serverNickCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 1 {
		return nil, false, false
	}
	oldNick := nickFromHostmask(sourceID)
	u, ok := c.mod.ircd.LookupNick(oldNick)
	if !ok || u.LocalOnly {
		return nil, c.mod.ircd.RecentlyQuitUser(oldNick), false
	}
	return &serverNickData{User: u, OldNick: oldNick, NewNick: params[0]}, false, false
}

func (c *serverNickCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	nd := data.(*serverNickData)
	d := c.mod.ircd

	if err := d.RenameNick(nd.User, nd.NewNick); err != nil {
		return
	}

	msg := wire.Message{Prefix: nd.OldNick + "!" + nd.User.Ident + "@" + nd.User.Host.Display, Command: "NICK", Params: []string{nd.NewNick}}

	informed := map[entity.UserID]bool{}
	for _, ch := range nd.User.Channels {
		for _, m := range ch.Users {
			if !m.User.LocalOnly || informed[m.User.UUID] {
				continue
			}
			informed[m.User.UUID] = true
			d.SendTo(m.User.UUID, msg)
		}
	}

	relay(d, fromServer, msg)
}

func (c *serverNickCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverNickCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverQuitCommand removes a remote user that disconnected from its
// home server. Parameters: [reason]
type serverQuitCommand struct{ mod *Module }

func (c *serverQuitCommand) Name() string  { return "QUIT" }
func (c *serverQuitCommand) Priority() int { return 0 }

type serverQuitData struct {
	User   *entity.User
	Reason string
}

func (c *serverQuitCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	nick := nickFromHostmask(sourceID)
	u, ok := c.mod.ircd.LookupNick(nick)
	if !ok || u.LocalOnly {
		return nil, true, false
	}
	reason := ""
	if len(params) > 0 {
		reason = params[0]
	}
	return &serverQuitData{User: u, Reason: reason}, false, false
}

func (c *serverQuitCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	qd := data.(*serverQuitData)
	d := c.mod.ircd

	msg := wire.Message{Prefix: sourceID, Command: "QUIT", Params: quitParams(qd.Reason)}
	informed := map[entity.UserID]bool{}
	for _, ch := range qd.User.Channels {
		for _, m := range ch.Users {
			if !m.User.LocalOnly || informed[m.User.UUID] {
				continue
			}
			informed[m.User.UUID] = true
			d.SendTo(m.User.UUID, msg)
		}
	}

	d.RemoveUser(qd.User)
	d.Actions.RunStandard("remotequit", qd.User)
	relay(d, fromServer, msg)
}

func quitParams(reason string) []string {
	if len(reason) == 0 {
		return nil
	}
	return []string{reason}
}

func (c *serverQuitCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverQuitCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverJoinCommand applies a remote user's JOIN. Parameters: <channel>
type serverJoinCommand struct{ mod *Module }

func (c *serverJoinCommand) Name() string  { return "JOIN" }
func (c *serverJoinCommand) Priority() int { return 0 }

type serverJoinData struct {
	User    *entity.User
	Channel string
}

func (c *serverJoinCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 1 {
		return nil, false, false
	}
	u, ok := c.mod.ircd.LookupNick(nickFromHostmask(sourceID))
	if !ok || u.LocalOnly {
		return nil, true, false
	}
	return &serverJoinData{User: u, Channel: params[0]}, false, false
}

func (c *serverJoinCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	jd := data.(*serverJoinData)
	d := c.mod.ircd

	ch, _ := d.GetOrCreateChannel(jd.Channel)
	d.JoinChannel(jd.User, jd.Channel)

	msg := wire.Message{Prefix: sourceID, Command: "JOIN", Params: []string{ch.Name}}
	d.Router.BroadcastToChannel(ch, jd.User, msg, nil)
	relay(d, fromServer, msg)
}

func (c *serverJoinCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverJoinCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverPartCommand applies a remote user's PART. Parameters: <channel> [reason]
type serverPartCommand struct{ mod *Module }

func (c *serverPartCommand) Name() string  { return "PART" }
func (c *serverPartCommand) Priority() int { return 0 }

type serverPartData struct {
	User    *entity.User
	Channel *entity.Channel
	Reason  string
}

func (c *serverPartCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 1 {
		return nil, false, false
	}
	u, ok := c.mod.ircd.LookupNick(nickFromHostmask(sourceID))
	if !ok || u.LocalOnly {
		return nil, true, false
	}
	ch, ok := c.mod.ircd.LookupChannel(params[0])
	if !ok {
		return nil, false, true
	}
	reason := ""
	if len(params) > 1 {
		reason = params[1]
	}
	return &serverPartData{User: u, Channel: ch, Reason: reason}, false, false
}

func (c *serverPartCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	pd := data.(*serverPartData)
	d := c.mod.ircd

	params := []string{pd.Channel.Name}
	if len(pd.Reason) > 0 {
		params = append(params, pd.Reason)
	}
	msg := wire.Message{Prefix: sourceID, Command: "PART", Params: params}
	d.Router.BroadcastToChannel(pd.Channel, nil, msg, nil)

	d.PartChannel(pd.User, pd.Channel)
	relay(d, fromServer, msg)
}

func (c *serverPartCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverPartCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverMessageCommand relays a remote PRIVMSG/NOTICE to local members
// of the target channel or to a local target nick.
type serverMessageCommand struct {
	mod    *Module
	notice bool
}

func (c *serverMessageCommand) Name() string {
	if c.notice {
		return "NOTICE"
	}
	return "PRIVMSG"
}
func (c *serverMessageCommand) Priority() int { return 0 }

type serverMessageData struct {
	Target string
	Text   string
}

func (c *serverMessageCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 2 {
		return nil, false, false
	}
	return &serverMessageData{Target: params[0], Text: params[1]}, false, false
}

func (c *serverMessageCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	md := data.(*serverMessageData)
	d := c.mod.ircd

	msg := wire.Message{Prefix: sourceID, Command: c.Name(), Params: []string{md.Target, md.Text}}

	if strings.HasPrefix(md.Target, "#") {
		ch, ok := d.LookupChannel(md.Target)
		if !ok {
			return
		}
		var except *entity.User
		if u, ok := d.LookupNick(nickFromHostmask(sourceID)); ok {
			except = u
		}
		d.Router.BroadcastToChannel(ch, except, msg, nil)
		relay(d, fromServer, msg)
		return
	}

	target, ok := d.LookupNick(md.Target)
	if !ok || !target.LocalOnly {
		relay(d, fromServer, msg)
		return
	}
	d.SendTo(target.UUID, msg)
	relay(d, fromServer, msg)
}

func (c *serverMessageCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverMessageCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverModeCommand applies a remote channel or user mode change.
type serverModeCommand struct{ mod *Module }

func (c *serverModeCommand) Name() string  { return "MODE" }
func (c *serverModeCommand) Priority() int { return 0 }

type serverModeData struct {
	IsChannel bool
	Channel   *entity.Channel
	User      *entity.User
	Changes   []ircd.ModeChange
	Source    string
}

func (c *serverModeCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 2 {
		return nil, false, false
	}
	d := c.mod.ircd

	if strings.HasPrefix(params[0], "#") {
		ch, ok := d.LookupChannel(params[0])
		if !ok {
			return nil, false, true
		}
		changes, _ := parseModeString(d.Modes, true, params[1], params[2:])
		return &serverModeData{IsChannel: true, Channel: ch, Changes: changes, Source: sourceID}, false, false
	}

	target, ok := d.LookupNick(params[0])
	if !ok {
		return nil, false, true
	}
	changes, _ := parseModeString(d.Modes, false, params[1], nil)
	return &serverModeData{IsChannel: false, User: target, Changes: changes, Source: sourceID}, false, false
}

func (c *serverModeCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	md := data.(*serverModeData)
	d := c.mod.ircd

	var applied []ircd.ModeChange
	var msg wire.Message
	if md.IsChannel {
		applied = d.SetChannelModes(md.Channel, md.Changes, md.Source)
		if len(applied) == 0 {
			return
		}
		msg = wire.Message{Prefix: md.Source, Command: "MODE", Params: append([]string{md.Channel.Name}, renderModeChanges(applied)...)}
		d.Router.BroadcastToChannel(md.Channel, nil, msg, nil)
	} else {
		applied = d.SetUserModes(md.User, md.Changes)
		if len(applied) == 0 {
			return
		}
		msg = wire.Message{Prefix: md.Source, Command: "MODE", Params: append([]string{md.User.Nick}, renderModeChanges(applied)...)}
		if md.User.LocalOnly {
			d.SendTo(md.User.UUID, msg)
		}
	}

	relay(d, fromServer, msg)
}

func (c *serverModeCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverModeCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverKickCommand applies a remote KICK. Parameters: <channel> <nick> [reason]
type serverKickCommand struct{ mod *Module }

func (c *serverKickCommand) Name() string  { return "KICK" }
func (c *serverKickCommand) Priority() int { return 0 }

type serverKickData struct {
	Channel *entity.Channel
	Target  *entity.User
	Reason  string
}

func (c *serverKickCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 2 {
		return nil, false, false
	}
	d := c.mod.ircd
	ch, ok := d.LookupChannel(params[0])
	if !ok {
		return nil, false, true
	}
	target, ok := d.LookupNick(params[1])
	if !ok {
		return nil, false, true
	}
	reason := ""
	if len(params) > 2 {
		reason = params[2]
	}
	return &serverKickData{Channel: ch, Target: target, Reason: reason}, false, false
}

func (c *serverKickCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	kd := data.(*serverKickData)
	d := c.mod.ircd

	msg := wire.Message{Prefix: sourceID, Command: "KICK", Params: []string{kd.Channel.Name, kd.Target.Nick, kd.Reason}}
	d.Router.BroadcastToChannel(kd.Channel, nil, msg, nil)
	d.PartChannel(kd.Target, kd.Channel)
	relay(d, fromServer, msg)
}

func (c *serverKickCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverKickCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverTopicCommand applies a remote TOPIC change. Parameters: <channel> [topic]
type serverTopicCommand struct{ mod *Module }

func (c *serverTopicCommand) Name() string  { return "TOPIC" }
func (c *serverTopicCommand) Priority() int { return 0 }

type serverTopicData struct {
	Channel *entity.Channel
	Text    string
	Setter  string
}

func (c *serverTopicCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 1 {
		return nil, false, false
	}
	ch, ok := c.mod.ircd.LookupChannel(params[0])
	if !ok {
		return nil, false, true
	}
	text := ""
	if len(params) > 1 {
		text = params[1]
	}
	return &serverTopicData{Channel: ch, Text: text, Setter: sourceID}, false, false
}

func (c *serverTopicCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	td := data.(*serverTopicData)
	d := c.mod.ircd

	td.Channel.Topic = entity.Topic{Text: td.Text, Setter: td.Setter, SetAt: time.Now()}

	msg := wire.Message{Prefix: sourceID, Command: "TOPIC", Params: []string{td.Channel.Name, td.Text}}
	d.Router.BroadcastToChannel(td.Channel, nil, msg, nil)
	relay(d, fromServer, msg)
}

func (c *serverTopicCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverTopicCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverPingCommand answers a keepalive PING from a linked peer.
type serverPingCommand struct{ mod *Module }

func (c *serverPingCommand) Name() string  { return "PING" }
func (c *serverPingCommand) Priority() int { return 0 }

func (c *serverPingCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	return &struct{}{}, false, false
}

func (c *serverPingCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	d := c.mod.ircd
	d.SendToServer(fromServer, wire.Message{Prefix: d.Self.Name, Command: "PONG", Params: []string{d.Self.Name, sourceID}})
}

func (c *serverPingCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverPingCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverPongCommand records a peer server's keepalive reply.
type serverPongCommand struct{ mod *Module }

func (c *serverPongCommand) Name() string  { return "PONG" }
func (c *serverPongCommand) Priority() int { return 0 }

func (c *serverPongCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	return &struct{}{}, false, false
}

func (c *serverPongCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	if p, ok := c.mod.ircd.Peer(fromServer); ok {
		router.RecordPong(p.Cache, time.Now())
	}
}

func (c *serverPongCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverPongCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }

// serverSquitCommand removes a peer server and every user it (or a
// server behind it) introduced. Parameters: <target server> [reason]
type serverSquitCommand struct{ mod *Module }

func (c *serverSquitCommand) Name() string  { return "SQUIT" }
func (c *serverSquitCommand) Priority() int { return 0 }

type serverSquitData struct {
	Target entity.ServerID
}

func (c *serverSquitCommand) ParseParams(sourceID string, fromServer entity.ServerID, params []string) (interface{}, bool, bool) {
	if len(params) < 1 {
		return nil, false, false
	}
	return &serverSquitData{Target: entity.ServerID(params[0])}, false, false
}

// Execute removes every user whose home server is the departing one
// (or a server reachable only through it, though this port does not
// track multi-hop server trees so only directly attributed users are
// cleaned up), then forgets the peer.
func (c *serverSquitCommand) Execute(sourceID string, fromServer entity.ServerID, data interface{}) {
	sd := data.(*serverSquitData)
	d := c.mod.ircd

	var departing []*entity.User
	for _, u := range d.Users {
		if !u.LocalOnly && u.Server == sd.Target {
			departing = append(departing, u)
		}
	}
	for _, u := range departing {
		d.RemoveUser(u)
		d.Actions.RunStandard("remotequit", u)
	}

	d.RemovePeer(sd.Target)
}

func (c *serverSquitCommand) AffectedUsers(interface{}) []*entity.User       { return nil }
func (c *serverSquitCommand) AffectedChannels(interface{}) []*entity.Channel { return nil }
