package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
)

type quitCommand struct{ mod *Module }

func (c *quitCommand) Name() string                        { return "QUIT" }
func (c *quitCommand) Priority() int                        { return 0 }
func (c *quitCommand) ForRegistered() command.Registration { return command.Either }

type quitData struct {
	Reason string
}

func (c *quitCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	reason := "Client Quit"
	if len(params) > 0 {
		reason = params[0]
	}
	return &quitData{Reason: reason}
}

func (c *quitCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *quitCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *quitCommand) Execute(actor *entity.User, data interface{}) {
	qd := data.(*quitData)
	c.mod.ircd.QuitUser(actor, qd.Reason)
}
