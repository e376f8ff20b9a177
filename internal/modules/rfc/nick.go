package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

type nickCommand struct{ mod *Module }

func (c *nickCommand) Name() string                    { return "NICK" }
func (c *nickCommand) Priority() int                    { return 0 }
func (c *nickCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type nickData struct {
	NewNick string
}

func (c *nickCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		sink.SendSingleError(ircd.ERR_NONICKNAMEGIVEN, "No nickname given")
		return nil
	}

	nick := params[0]
	if !ircd.IsValidNick(nick) {
		sink.SendSingleError(ircd.ERR_ERRONEUSNICKNAME, nick+" :Erroneous nickname")
		return nil
	}

	return &nickData{NewNick: nick}
}

func (c *nickCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *nickCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *nickCommand) Execute(actor *entity.User, data interface{}) {
	nd := data.(*nickData)
	d := c.mod.ircd

	if nd.NewNick == actor.Nick {
		return
	}

	old := actor.Nick
	if err := d.RenameNick(actor, nd.NewNick); err != nil {
		d.SendNumericToUser(actor, ircd.ERR_NICKNAMEINUSE, nd.NewNick, "Nickname is already in use")
		return
	}

	msg := wireNickMessage(old, actor)

	informed := map[entity.UserID]bool{actor.UUID: true}
	d.SendTo(actor.UUID, msg)
	for _, ch := range actor.Channels {
		for _, m := range ch.Users {
			if informed[m.User.UUID] {
				continue
			}
			informed[m.User.UUID] = true
			d.SendTo(m.User.UUID, msg)
		}
	}

	d.Router.BroadcastToServers(d.AllPeers(), "", msg)
}

func wireNickMessage(oldNick string, actor *entity.User) wire.Message {
	return wire.Message{
		Prefix:  oldNick + "!" + actor.Ident + "@" + actor.Host.Display,
		Command: "NICK",
		Params:  []string{actor.Nick},
	}
}
