package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

type partCommand struct{ mod *Module }

func (c *partCommand) Name() string                        { return "PART" }
func (c *partCommand) Priority() int                        { return 0 }
func (c *partCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type partData struct {
	Channels []string
	Reason   string
}

func (c *partCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "PART :Not enough parameters")
		return nil
	}

	reason := actor.Nick
	if len(params) > 1 {
		reason = params[1]
	}

	return &partData{Channels: splitCSV(params[0]), Reason: reason}
}

func (c *partCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *partCommand) AffectedChannels(data interface{}) []*entity.Channel {
	pd := data.(*partData)
	d := c.mod.ircd
	var out []*entity.Channel
	for _, name := range pd.Channels {
		if ch, ok := d.LookupChannel(name); ok {
			out = append(out, ch)
		}
	}
	return out
}

func (c *partCommand) Execute(actor *entity.User, data interface{}) {
	pd := data.(*partData)
	d := c.mod.ircd

	for _, name := range pd.Channels {
		ch, ok := d.LookupChannel(name)
		if !ok {
			d.SendNumericToUser(actor, ircd.ERR_NOSUCHCHANNEL, name, "No such channel")
			continue
		}
		if _, member := ch.Membership(actor.UUID); !member {
			d.SendNumericToUser(actor, ircd.ERR_NOTONCHANNEL, ch.Name, "You're not on that channel")
			continue
		}

		partMsg := wire.Message{Prefix: prefixFor(actor), Command: "PART", Params: []string{ch.Name, pd.Reason}}
		d.Router.BroadcastToChannel(ch, nil, partMsg, nil)
		d.Router.BroadcastToServers(d.AllPeers(), "", partMsg)

		d.PartChannel(actor, ch)
	}
}
