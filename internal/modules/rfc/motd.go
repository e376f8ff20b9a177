package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
)

type motdCommand struct{ mod *Module }

func (c *motdCommand) Name() string                    { return "MOTD" }
func (c *motdCommand) Priority() int                    { return 0 }
func (c *motdCommand) ForRegistered() command.Registration { return command.RequireRegistered }

func (c *motdCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	return &struct{}{}
}

func (c *motdCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *motdCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *motdCommand) Execute(actor *entity.User, data interface{}) {
	d := c.mod.ircd

	if len(d.Config.MOTD) == 0 {
		d.SendNumericToUser(actor, "422", "MOTD File is missing")
		return
	}

	d.SendNumericToUser(actor, "375", "- "+d.Self.Name+" Message of the day -")
	for _, line := range wrapMOTDLines(d.Config.MOTD, d.Config.MOTDLineLength) {
		d.SendNumericToUser(actor, "372", ":- "+line)
	}
	d.SendNumericToUser(actor, "376", "End of /MOTD command")
}
