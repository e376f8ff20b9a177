package rfc

import (
	"strconv"
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

type joinCommand struct{ mod *Module }

func (c *joinCommand) Name() string                        { return "JOIN" }
func (c *joinCommand) Priority() int                        { return 0 }
func (c *joinCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type joinData struct {
	Channels []string
	Keys     []string
}

func (c *joinCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "JOIN :Not enough parameters")
		return nil
	}

	chans := splitCSV(params[0])
	var keys []string
	if len(params) > 1 {
		keys = splitCSV(params[1])
	}

	return &joinData{Channels: chans, Keys: keys}
}

func (c *joinCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *joinCommand) AffectedChannels(data interface{}) []*entity.Channel {
	jd := data.(*joinData)
	d := c.mod.ircd
	var out []*entity.Channel
	for _, name := range jd.Channels {
		if ch, ok := d.LookupChannel(name); ok {
			out = append(out, ch)
		}
	}
	return out
}

func (c *joinCommand) Execute(actor *entity.User, data interface{}) {
	jd := data.(*joinData)
	d := c.mod.ircd

	for i, name := range jd.Channels {
		if !strings.HasPrefix(name, "#") {
			continue
		}
		if _, already := actor.Channels[entity.CanonicalizeChannel(name)]; already {
			continue
		}

		var key string
		if i < len(jd.Keys) {
			key = jd.Keys[i]
		}

		ch, created := d.GetOrCreateChannel(name)

		if denied, numeric, text := c.checkJoinGates(d, ch, actor, key); denied {
			d.SendNumericToUser(actor, numeric, ch.Name, text)
			if created {
				d.DropEmptyChannel(ch)
			}
			continue
		}

		_, m, _ := d.JoinChannel(actor, name)
		if created {
			if order := d.Modes.StatusOrder(); len(order) > 0 {
				m.Status[order[0]] = true
			}
		}

		joinMsg := wire.Message{Prefix: prefixFor(actor), Command: "JOIN", Params: []string{ch.Name}}
		d.Router.BroadcastToChannel(ch, nil, joinMsg, nil)
		d.Router.BroadcastToServers(d.AllPeers(), "", joinMsg)

		for _, letter := range d.Modes.StatusOrder() {
			if m.Status[letter] {
				statusMsg := wire.Message{
					Prefix:  d.Self.Name,
					Command: "MODE",
					Params:  []string{ch.Name, "+" + string(letter), actor.Nick},
				}
				d.Router.BroadcastToChannel(ch, nil, statusMsg, nil)
				d.Router.BroadcastToServers(d.AllPeers(), "", statusMsg)
			}
		}

		c.sendJoinNumerics(d, actor, ch)
	}
}

// checkJoinGates evaluates the RFC channel modes that can block a join:
// invite-only (+i, this port has no INVITE exception list so +i simply
// blocks non-members), key (+k) mismatch, limit (+l), and the ban/extban
// veto, which reaches ban mode's CheckJoinPermission through the
// "joinpermission" action.
func (c *joinCommand) checkJoinGates(d *ircd.IRCd, ch *entity.Channel, actor *entity.User, key string) (denied bool, numeric, text string) {
	if !d.Actions.RunAllowed("joinpermission", ch, actor) {
		return true, ircd.ERR_BANNEDFROMCHAN, "Cannot join channel (You're banned)"
	}

	if _, invite := ch.Modes['i']; invite && len(ch.Users) > 0 {
		return true, ircd.ERR_INVITEONLYCHAN, "Cannot join channel (+i)"
	}

	if expected, hasKey := ch.Modes['k']; hasKey && key != expected {
		return true, ircd.ERR_BADCHANNELKEY, "Cannot join channel (+k)"
	}

	if limitStr, hasLimit := ch.Modes['l']; hasLimit {
		if limit, err := strconv.Atoi(limitStr); err == nil && len(ch.Users) >= limit {
			return true, ircd.ERR_CHANNELISFULL, "Cannot join channel (+l)"
		}
	}

	return false, "", ""
}

func (c *joinCommand) sendJoinNumerics(d *ircd.IRCd, actor *entity.User, ch *entity.Channel) {
	d.SendNumericToUser(actor, ircd.RPL_CREATIONTIME, ch.Name, strconv.FormatInt(ch.CreatedAt.Unix(), 10))

	if len(ch.Topic.Text) > 0 {
		d.SendNumericToUser(actor, "332", ch.Name, ch.Topic.Text)
		d.SendNumericToUser(actor, ircd.RPL_TOPICWHOTIME, ch.Name, ch.Topic.Setter, strconv.FormatInt(ch.Topic.SetAt.Unix(), 10))
	}

	var names []string
	for _, m := range ch.Users {
		names = append(names, memberDisplay(d, m))
	}
	d.SendNumericToUser(actor, "353", "=", ch.Name, strings.Join(names, " "))
	d.SendNumericToUser(actor, "366", ch.Name, "End of /NAMES list")
}

// memberDisplay prefixes a member's nick with the display symbol of
// their highest status mode, if any.
func memberDisplay(d *ircd.IRCd, m *entity.Membership) string {
	for _, letter := range d.Modes.StatusOrder() {
		if m.Status[letter] {
			desc, _ := d.Modes.ChannelMode(letter)
			return string(desc.Symbol) + m.User.Nick
		}
	}
	return m.User.Nick
}
