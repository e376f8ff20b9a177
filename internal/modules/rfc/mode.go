package rfc

import (
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/modeset"
	"github.com/horgh/ironrelay/internal/wire"
)

type modeCommand struct{ mod *Module }

func (c *modeCommand) Name() string                    { return "MODE" }
func (c *modeCommand) Priority() int                    { return 0 }
func (c *modeCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type modeData struct {
	Target      string
	IsChannel   bool
	Changes     []ircd.ModeChange
	Query       bool
	ListQueries []byte
}

func (c *modeCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
		return nil
	}

	target := params[0]
	isChannel := strings.HasPrefix(target, "#")

	if len(params) == 1 {
		return &modeData{Target: target, IsChannel: isChannel, Query: true}
	}

	changes, listQueries := parseModeString(c.mod.ircd.Modes, isChannel, params[1], params[2:])
	return &modeData{Target: target, IsChannel: isChannel, Changes: changes, ListQueries: listQueries}
}

// parseModeString expands a "+a-b+c" style modestring against its
// parameter list, consuming one param per Param-category change (set or
// unset), ParamOnUnset-category unset (and set, when a parameter
// remains), List-category change, or Status-category change, per RFC 2812
// section 3.2.3's modestring grammar. A List-category letter given with
// no remaining parameter (e.g. a bare "+b") is a list query rather than
// a change, collected separately. Shared with the server-side MODE
// handler so both directions expand a modestring identically.
func parseModeString(registry *modeset.Registry, isChannel bool, modestr string, params []string) ([]ircd.ModeChange, []byte) {
	var out []ircd.ModeChange
	var queries []byte
	adding := true
	pi := 0

	for i := 0; i < len(modestr); i++ {
		switch modestr[i] {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		letter := modestr[i]

		var desc *modeset.Descriptor
		var ok bool
		if isChannel {
			desc, ok = registry.ChannelMode(letter)
		} else {
			desc, ok = registry.UserMode(letter)
		}
		if !ok {
			continue
		}

		if desc.Category == modeset.List && pi >= len(params) {
			queries = append(queries, letter)
			continue
		}

		chg := ircd.ModeChange{Adding: adding, Letter: letter}

		switch desc.Category {
		case modeset.Param, modeset.List, modeset.Status:
			if pi < len(params) {
				chg.Param = params[pi]
				pi++
			} else {
				continue
			}
		case modeset.ParamOnUnset:
			if !adding {
				if pi < len(params) {
					chg.Param = params[pi]
					pi++
				} else {
					continue
				}
			} else if pi < len(params) {
				chg.Param = params[pi]
				pi++
			}
		}

		out = append(out, chg)
	}

	return out, queries
}

func (c *modeCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *modeCommand) AffectedChannels(data interface{}) []*entity.Channel {
	md := data.(*modeData)
	if !md.IsChannel {
		return nil
	}
	if ch, ok := c.mod.ircd.LookupChannel(md.Target); ok {
		return []*entity.Channel{ch}
	}
	return nil
}

func (c *modeCommand) Execute(actor *entity.User, data interface{}) {
	md := data.(*modeData)
	d := c.mod.ircd

	if md.IsChannel {
		c.executeChannel(d, actor, md)
		return
	}
	c.executeUser(d, actor, md)
}

func (c *modeCommand) executeChannel(d *ircd.IRCd, actor *entity.User, md *modeData) {
	ch, ok := d.LookupChannel(md.Target)
	if !ok {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHCHANNEL, md.Target, "No such channel")
		return
	}

	if md.Query {
		d.SendNumericToUser(actor, "324", ch.Name, renderChannelModes(ch))
		return
	}

	m, isMember := ch.Membership(actor.UUID)
	if !isMember {
		d.SendNumericToUser(actor, ircd.ERR_NOTONCHANNEL, ch.Name, "You're not on that channel")
		return
	}

	for _, letter := range md.ListQueries {
		c.sendListReply(d, actor, ch, letter)
	}

	if len(md.Changes) > 0 && !isChanOp(d, m) {
		d.SendNumericToUser(actor, ircd.ERR_CHANOPRIVSNEEDED, ch.Name, "You're not a channel operator")
		return
	}

	applied := d.SetChannelModes(ch, md.Changes, actor.Nick)
	if len(applied) == 0 {
		return
	}

	modeMsg := wire.Message{Prefix: prefixFor(actor), Command: "MODE", Params: append([]string{ch.Name}, renderModeChanges(applied)...)}
	d.Router.BroadcastToChannel(ch, nil, modeMsg, nil)
	d.Router.BroadcastToServers(d.AllPeers(), "", modeMsg)
}

// isChanOp reports whether m holds the highest-ranked status mode
// registered (by convention 'o'), the privilege RFC 2812 requires to
// change any channel mode other than one's own status.
func isChanOp(d *ircd.IRCd, m *entity.Membership) bool {
	order := d.Modes.StatusOrder()
	if len(order) == 0 {
		return true
	}
	return m.Status[order[0]]
}

// sendListReply sends the current entries of a List-category mode as
// 367/368-shaped numerics; only 'b' is a built-in numeric pair, other
// List modes reuse the same pair since this port registers no other
// List-category channel mode.
func (c *modeCommand) sendListReply(d *ircd.IRCd, actor *entity.User, ch *entity.Channel, letter byte) {
	for _, entry := range ch.Lists[letter] {
		d.SendNumericToUser(actor, ircd.RPL_BANLIST, ch.Name, entry.Param, entry.Setter)
	}
	d.SendNumericToUser(actor, ircd.RPL_ENDOFBANLIST, ch.Name, "End of channel ban list")
}

func (c *modeCommand) executeUser(d *ircd.IRCd, actor *entity.User, md *modeData) {
	target, ok := d.LookupNick(md.Target)
	if !ok {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHNICK, md.Target, "No such nick/channel")
		return
	}
	if target.UUID != actor.UUID {
		d.SendNumericToUser(actor, ircd.ERR_USERSDONTMATCH, "Cannot change mode for other users")
		return
	}

	if md.Query {
		d.SendNumericToUser(actor, "221", renderUserModes(actor))
		return
	}

	applied := d.SetUserModes(actor, md.Changes)
	if len(applied) == 0 {
		return
	}

	d.SendTo(actor.UUID, wire.Message{Prefix: prefixFor(actor), Command: "MODE", Params: append([]string{actor.Nick}, renderModeChanges(applied)...)})
}

func renderModeChanges(changes []ircd.ModeChange) []string {
	var plus, minus strings.Builder
	var params []string

	for _, chg := range changes {
		if chg.Adding {
			plus.WriteByte(chg.Letter)
		} else {
			minus.WriteByte(chg.Letter)
		}
		if len(chg.Param) > 0 {
			params = append(params, chg.Param)
		}
	}

	var sb strings.Builder
	if plus.Len() > 0 {
		sb.WriteByte('+')
		sb.WriteString(plus.String())
	}
	if minus.Len() > 0 {
		sb.WriteByte('-')
		sb.WriteString(minus.String())
	}

	return append([]string{sb.String()}, params...)
}

func renderChannelModes(ch *entity.Channel) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for letter := range ch.Modes {
		sb.WriteByte(letter)
	}
	return sb.String()
}

func renderUserModes(u *entity.User) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for letter := range u.Modes {
		sb.WriteByte(letter)
	}
	return sb.String()
}
