package rfc

import (
	"strconv"
	"time"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

type topicCommand struct{ mod *Module }

func (c *topicCommand) Name() string                    { return "TOPIC" }
func (c *topicCommand) Priority() int                    { return 0 }
func (c *topicCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type topicData struct {
	Channel string
	Text    string
	HasText bool
}

func (c *topicCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "TOPIC :Not enough parameters")
		return nil
	}

	return &topicData{Channel: params[0], Text: func() string {
		if len(params) > 1 {
			return params[1]
		}
		return ""
	}(), HasText: len(params) > 1}
}

func (c *topicCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *topicCommand) AffectedChannels(data interface{}) []*entity.Channel {
	td := data.(*topicData)
	d := c.mod.ircd
	if ch, ok := d.LookupChannel(td.Channel); ok {
		return []*entity.Channel{ch}
	}
	return nil
}

func (c *topicCommand) Execute(actor *entity.User, data interface{}) {
	td := data.(*topicData)
	d := c.mod.ircd

	ch, ok := d.LookupChannel(td.Channel)
	if !ok {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHCHANNEL, td.Channel, "No such channel")
		return
	}

	m, isMember := ch.Membership(actor.UUID)
	if !isMember {
		d.SendNumericToUser(actor, ircd.ERR_NOTONCHANNEL, ch.Name, "You're not on that channel")
		return
	}

	if !td.HasText {
		if len(ch.Topic.Text) == 0 {
			d.SendNumericToUser(actor, "331", ch.Name, "No topic is set")
			return
		}
		d.SendNumericToUser(actor, "332", ch.Name, ch.Topic.Text)
		d.SendNumericToUser(actor, ircd.RPL_TOPICWHOTIME, ch.Name, ch.Topic.Setter, strconv.FormatInt(ch.Topic.SetAt.Unix(), 10))
		return
	}

	if _, topicLocked := ch.Modes['t']; topicLocked && highestRank(d, m) < 0 {
		d.SendNumericToUser(actor, ircd.ERR_CHANOPRIVSNEEDED, ch.Name, "You're not a channel operator")
		return
	}

	ch.Topic = entity.Topic{Text: td.Text, Setter: prefixFor(actor), SetAt: time.Now()}

	topicMsg := wire.Message{Prefix: prefixFor(actor), Command: "TOPIC", Params: []string{ch.Name, td.Text}}
	d.Router.BroadcastToChannel(ch, nil, topicMsg, nil)
	d.Router.BroadcastToServers(d.AllPeers(), "", topicMsg)
}
