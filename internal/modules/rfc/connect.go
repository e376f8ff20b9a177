package rfc

import (
	"log"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

type connectCommand struct{ mod *Module }

func (c *connectCommand) Name() string                     { return "CONNECT" }
func (c *connectCommand) Priority() int                     { return 0 }
func (c *connectCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type connectData struct {
	ServerName string
}

// ParseParams implements CONNECT differently than RFC 2812: only a
// single parameter, the configured link's server name, no port/remote
// relay parameter.
func (c *connectCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) < 1 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "CONNECT :Not enough parameters")
		return nil
	}
	return &connectData{ServerName: params[0]}
}

func (c *connectCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *connectCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

// Execute validates the link synchronously (on the event-loop goroutine,
// same as every other command), then hands the actual blocking dial off
// to a background goroutine: DialAndHandshake touches no IRCd state, so
// it is safe to run off-loop, and its result reaches the loop back
// through OnOutboundConnect rather than by mutating anything directly.
func (c *connectCommand) Execute(actor *entity.User, data interface{}) {
	cd := data.(*connectData)
	d := c.mod.ircd

	if !actor.IsOper() {
		d.SendNumericToUser(actor, ircd.ERR_NOPRIVILEGES, "Permission Denied- You're not an IRC operator")
		return
	}

	spec, err := d.PrepareLink(cd.ServerName)
	if err != nil {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHSERVER, cd.ServerName, "No such server")
		return
	}

	// Execute runs on the event-loop goroutine, so this SendTo (and the
	// PrepareLink call above) is safe despite touching IRCd-owned state;
	// only the dial below is pushed off-loop.
	d.SendTo(actor.UUID, wire.Message{
		Prefix:  d.Self.Name,
		Command: "NOTICE",
		Params:  []string{actor.Nick, "*** Connecting to " + cd.ServerName + "..."},
	})

	selfName, selfSID := d.Self.Name, string(d.Self.ServerID)
	go func() {
		if err := ircd.DialAndHandshake(spec, selfName, selfSID, d.OnOutboundConnect); err != nil {
			log.Printf("CONNECT %s: %s", cd.ServerName, err)
		}
	}()
}
