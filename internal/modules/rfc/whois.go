package rfc

import (
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
)

type whoisCommand struct{ mod *Module }

func (c *whoisCommand) Name() string                    { return "WHOIS" }
func (c *whoisCommand) Priority() int                    { return 0 }
func (c *whoisCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type whoisData struct {
	Nick string
}

func (c *whoisCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) == 0 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "WHOIS :Not enough parameters")
		return nil
	}
	nick := params[0]
	if idx := strings.Index(nick, ","); idx >= 0 {
		nick = nick[:idx]
	}
	return &whoisData{Nick: nick}
}

func (c *whoisCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *whoisCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *whoisCommand) Execute(actor *entity.User, data interface{}) {
	wd := data.(*whoisData)
	d := c.mod.ircd

	target, ok := d.LookupNick(wd.Nick)
	if !ok {
		d.SendNumericToUser(actor, ircd.ERR_NOSUCHNICK, wd.Nick, "No such nick/channel")
		d.SendNumericToUser(actor, "318", wd.Nick, "End of /WHOIS list")
		return
	}

	d.SendNumericToUser(actor, "311", target.Nick, target.Ident, target.Host.Display, "*", target.GECOS)

	var chans []string
	for _, ch := range target.Channels {
		if m, ok := ch.Membership(target.UUID); ok {
			chans = append(chans, memberDisplay(d, m))
		}
	}
	if len(chans) > 0 {
		d.SendNumericToUser(actor, "319", target.Nick, strings.Join(chans, " "))
	}

	d.SendNumericToUser(actor, "312", target.Nick, d.Self.Name, d.Self.Version)

	if account, ok := target.Metadata["account"]; ok && len(account) > 0 {
		d.SendNumericToUser(actor, ircd.RPL_WHOISACCOUNT, target.Nick, account, "is logged in as")
	}

	if target.LocalOnly {
		d.SendNumericToUser(actor, ircd.RPL_WHOISSECURE, target.Nick, "is using a secure connection")
	}

	if target.IsOper() {
		d.SendNumericToUser(actor, "313", target.Nick, "is an IRC operator")
	}

	d.SendNumericToUser(actor, "318", target.Nick, "End of /WHOIS list")
}
