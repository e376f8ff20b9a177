package rfc

import (
	"time"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/router"
)

type pongCommand struct{ mod *Module }

func (c *pongCommand) Name() string                    { return "PONG" }
func (c *pongCommand) Priority() int                    { return 0 }
func (c *pongCommand) ForRegistered() command.Registration { return command.Either }

func (c *pongCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	return &struct{}{}
}

func (c *pongCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *pongCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *pongCommand) Execute(actor *entity.User, data interface{}) {
	router.RecordPong(actor.Cache, time.Now())
}
