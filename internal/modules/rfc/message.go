package rfc

import (
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

// messageCommand implements both PRIVMSG and NOTICE: identical routing,
// differing only in that NOTICE never generates an error reply (RFC
// 2812 section 3.3.2).
type messageCommand struct {
	mod    *Module
	notice bool
}

func (c *messageCommand) Name() string {
	if c.notice {
		return "NOTICE"
	}
	return "PRIVMSG"
}

func (c *messageCommand) Priority() int                        { return 0 }
func (c *messageCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type messageData struct {
	Targets []string
	Text    string
}

func (c *messageCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		if !c.notice {
			sink.SendSingleError("411", "No recipient given ("+c.Name()+")")
		}
		return nil
	}
	if len(params) < 2 {
		if !c.notice {
			sink.SendSingleError("412", "No text to send")
		}
		return nil
	}

	return &messageData{Targets: splitCSV(params[0]), Text: params[1]}
}

func (c *messageCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *messageCommand) AffectedChannels(data interface{}) []*entity.Channel {
	md := data.(*messageData)
	d := c.mod.ircd
	var out []*entity.Channel
	for _, t := range md.Targets {
		if ch, ok := d.LookupChannel(t); ok {
			out = append(out, ch)
		}
	}
	return out
}

func (c *messageCommand) Execute(actor *entity.User, data interface{}) {
	md := data.(*messageData)
	d := c.mod.ircd

	for _, target := range md.Targets {
		if strings.HasPrefix(target, "#") {
			c.sendToChannel(d, actor, target, md.Text)
			continue
		}
		c.sendToNick(d, actor, target, md.Text)
	}
}

func (c *messageCommand) sendToChannel(d *ircd.IRCd, actor *entity.User, name, text string) {
	ch, ok := d.LookupChannel(name)
	if !ok {
		if !c.notice {
			d.SendNumericToUser(actor, ircd.ERR_NOSUCHCHANNEL, name, "No such channel")
		}
		return
	}

	_, isMember := ch.Membership(actor.UUID)

	if !isMember {
		if _, noExternal := ch.Modes['n']; noExternal {
			c.denyChannel(d, actor, ch)
			return
		}
		if !d.Actions.RunAllowed("commandmodify-"+c.Name(), ch, actor) {
			c.denyChannel(d, actor, ch)
			return
		}
	} else if _, moderated := ch.Modes['m']; moderated {
		m, _ := ch.Membership(actor.UUID)
		if highestRank(d, m) < 0 {
			c.denyChannel(d, actor, ch)
			return
		}
	}

	msg := wire.Message{Prefix: prefixFor(actor), Command: c.Name(), Params: []string{ch.Name, text}}
	d.Router.BroadcastToChannel(ch, actor, msg, nil)
}

func (c *messageCommand) denyChannel(d *ircd.IRCd, actor *entity.User, ch *entity.Channel) {
	if !c.notice {
		d.SendNumericToUser(actor, ircd.ERR_CANNOTSENDTOCHAN, ch.Name, "Cannot send to channel")
	}
}

func (c *messageCommand) sendToNick(d *ircd.IRCd, actor *entity.User, nick, text string) {
	target, ok := d.LookupNick(nick)
	if !ok {
		if !c.notice {
			d.SendNumericToUser(actor, ircd.ERR_NOSUCHNICK, nick, "No such nick/channel")
		}
		return
	}

	d.SendTo(target.UUID, wire.Message{Prefix: prefixFor(actor), Command: c.Name(), Params: []string{target.Nick, text}})
}
