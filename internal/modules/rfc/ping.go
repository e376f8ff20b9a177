package rfc

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

type pingCommand struct{ mod *Module }

func (c *pingCommand) Name() string                    { return "PING" }
func (c *pingCommand) Priority() int                    { return 0 }
func (c *pingCommand) ForRegistered() command.Registration { return command.Either }

type pingData struct {
	Token string
}

func (c *pingCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	token := c.mod.ircd.Self.Name
	if len(params) > 0 {
		token = params[0]
	}
	return &pingData{Token: token}
}

func (c *pingCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *pingCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *pingCommand) Execute(actor *entity.User, data interface{}) {
	pd := data.(*pingData)
	d := c.mod.ircd
	d.SendTo(actor.UUID, wire.Message{
		Prefix:  d.Self.Name,
		Command: "PONG",
		Params:  []string{d.Self.Name, pd.Token},
	})
}
