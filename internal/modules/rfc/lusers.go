package rfc

import (
	"strconv"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
)

type lusersCommand struct{ mod *Module }

func (c *lusersCommand) Name() string                    { return "LUSERS" }
func (c *lusersCommand) Priority() int                    { return 0 }
func (c *lusersCommand) ForRegistered() command.Registration { return command.RequireRegistered }

func (c *lusersCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	return &struct{}{}
}

func (c *lusersCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *lusersCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *lusersCommand) Execute(actor *entity.User, data interface{}) {
	d := c.mod.ircd

	var opers, local int
	for _, u := range d.Users {
		if u.LocalOnly {
			local++
		}
		if u.IsOper() {
			opers++
		}
	}

	d.SendNumericToUser(actor, "251", "There are "+strconv.Itoa(len(d.Users))+" users on 1 server")
	d.SendNumericToUser(actor, "252", strconv.Itoa(opers), "operator(s) online")
	d.SendNumericToUser(actor, "254", strconv.Itoa(len(d.Channels)), "channels formed")
	d.SendNumericToUser(actor, "255", "I have "+strconv.Itoa(local)+" clients and "+strconv.Itoa(len(d.AllPeers()))+" servers")
}
