package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

type kickCommand struct{ mod *Module }

func (c *kickCommand) Name() string                    { return "KICK" }
func (c *kickCommand) Priority() int                    { return 0 }
func (c *kickCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type kickData struct {
	Channel string
	Target  string
	Reason  string
}

func (c *kickCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) < 2 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "KICK :Not enough parameters")
		return nil
	}

	reason := actor.Nick
	if len(params) > 2 {
		reason = params[2]
	}

	return &kickData{Channel: params[0], Target: params[1], Reason: reason}
}

func (c *kickCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *kickCommand) AffectedChannels(data interface{}) []*entity.Channel {
	kd := data.(*kickData)
	d := c.mod.ircd
	if ch, ok := d.LookupChannel(kd.Channel); ok {
		return []*entity.Channel{ch}
	}
	return nil
}

// Execute enforces the rank-based privilege rule (scenario S5): the
// kicker must outrank the target's highest status mode, op outranking
// voice outranking no status.
func (c *kickCommand) Execute(actor *entity.User, data interface{}) {
	kd := data.(*kickData)
	d := c.mod.ircd

	ch, ok := d.LookupChannel(kd.Channel)
	if !ok {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHCHANNEL, kd.Channel, "No such channel")
		return
	}

	actorM, isMember := ch.Membership(actor.UUID)
	if !isMember {
		d.SendNumericToUser(actor, ircd.ERR_NOTONCHANNEL, ch.Name, "You're not on that channel")
		return
	}

	target, ok := d.LookupNick(kd.Target)
	if !ok {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHNICK, kd.Target, "No such nick/channel")
		return
	}

	targetM, onChannel := ch.Membership(target.UUID)
	if !onChannel {
		d.SendNumericToUser(actor, ircd.ERR_USERNOTINCHANNEL, kd.Target, ch.Name, "They aren't on that channel")
		return
	}

	if highestRank(d, actorM) <= highestRank(d, targetM) {
		d.SendNumericToUser(actor, ircd.ERR_CHANOPRIVSNEEDED, ch.Name, "You don't have permission to kick this user")
		return
	}

	kickMsg := wire.Message{Prefix: prefixFor(actor), Command: "KICK", Params: []string{ch.Name, target.Nick, kd.Reason}}
	d.Router.BroadcastToChannel(ch, nil, kickMsg, nil)
	d.Router.BroadcastToServers(d.AllPeers(), "", kickMsg)

	d.PartChannel(target, ch)
}
