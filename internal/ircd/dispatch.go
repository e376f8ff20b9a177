package ircd

import (
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/conn"
	"github.com/horgh/ironrelay/internal/wire"
)

// DispatchCommand looks up and runs the handler chain for a message on
// an already-registered connection.
func (d *IRCd) DispatchCommand(c *conn.Connection, msg wire.Message) {
	switch c.Kind {
	case conn.KindUser:
		d.dispatchUserCommand(c, msg)
	case conn.KindServer:
		d.dispatchServerCommand(c, msg)
	}
}

func (d *IRCd) dispatchUserCommand(c *conn.Connection, msg wire.Message) {
	actor, ok := d.Users[c.UserID]
	if !ok {
		return
	}

	handlers := d.Commands.UserCommands(msg.Command)
	if len(handlers) == 0 {
		d.SendNumeric(c, actor.Nick, ERR_UNKNOWNCOMMAND, msg.Command, "Unknown command")
		return
	}

	sink := command.NewErrorSink(func(numeric, text string) {
		d.SendNumeric(c, actor.Nick, numeric, text)
	})

	for _, h := range handlers {
		data := h.ParseParams(actor, msg.Params, sink)
		if data == nil {
			continue
		}

		// commandpermission-<CMD> is a veto gate: any handler returning
		// false cancels execution.
		if !d.Actions.RunAllowed("commandpermission-"+msg.Command, actor, data) {
			return
		}

		h.Execute(actor, data)
		return
	}
}

func (d *IRCd) dispatchServerCommand(c *conn.Connection, msg wire.Message) {
	handlers := d.Commands.ServerCommands(msg.Command)
	if len(handlers) == 0 {
		return
	}

	source := msg.Prefix
	if len(source) == 0 {
		source = string(c.ServerID)
	}

	for _, h := range handlers {
		data, lostSource, lostTarget := h.ParseParams(source, c.ServerID, msg.Params)
		if lostSource || lostTarget {
			// Idempotent drop: the source or destination raced a
			// QUIT/SQUIT/channel destruction.
			return
		}
		if data == nil {
			continue
		}

		h.Execute(source, c.ServerID, data)
		return
	}
}
