package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
)

type whoCommand struct{ mod *Module }

func (c *whoCommand) Name() string                    { return "WHO" }
func (c *whoCommand) Priority() int                    { return 0 }
func (c *whoCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type whoData struct {
	Mask string
}

func (c *whoCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		return &whoData{}
	}
	return &whoData{Mask: params[0]}
}

func (c *whoCommand) AffectedUsers(data interface{}) []*entity.User { return nil }
func (c *whoCommand) AffectedChannels(data interface{}) []*entity.Channel {
	wd := data.(*whoData)
	if ch, ok := c.mod.ircd.LookupChannel(wd.Mask); ok {
		return []*entity.Channel{ch}
	}
	return nil
}

func (c *whoCommand) Execute(actor *entity.User, data interface{}) {
	wd := data.(*whoData)
	d := c.mod.ircd

	if ch, ok := d.LookupChannel(wd.Mask); ok {
		for _, m := range ch.Users {
			c.sendWhoLine(d, actor, ch.Name, m.User)
		}
		d.SendNumericToUser(actor, "315", wd.Mask, "End of /WHO list")
		return
	}

	if target, ok := d.LookupNick(wd.Mask); ok {
		c.sendWhoLine(d, actor, "*", target)
	}
	d.SendNumericToUser(actor, "315", wd.Mask, "End of /WHO list")
}

func (c *whoCommand) sendWhoLine(d *ircd.IRCd, actor *entity.User, channel string, u *entity.User) {
	flags := "H"
	if u.IsOper() {
		flags += "*"
	}
	d.SendNumericToUser(actor, "352", channel, u.Ident, u.Host.Display, d.Self.Name, u.Nick, flags, "0 "+u.GECOS)
}
