package rfc

import (
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/wire"
)

// klineCommand implements KLINE/UNKLINE as a single oper-only command:
// the operator-settable server ban list. Unlike channel bans this has
// no extban grammar: a K-line is a bare nick!ident@host glob checked
// once, at registration completion (internal/ircd/register.go).
type klineCommand struct{ mod *Module }

func (c *klineCommand) Name() string                        { return "KLINE" }
func (c *klineCommand) Priority() int                        { return 0 }
func (c *klineCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type klineData struct {
	Remove bool
	Mask   string
	Reason string
}

// ParseParams accepts "KLINE <mask> [:reason]" to add a ban and
// "KLINE -<mask>" to remove one (no separate UNKLINE command name).
func (c *klineCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) < 1 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "KLINE :Not enough parameters")
		return nil
	}

	mask := params[0]
	if strings.HasPrefix(mask, "-") {
		return &klineData{Remove: true, Mask: normalizeKLineMask(mask[1:])}
	}

	reason := "K-lined"
	if len(params) > 1 {
		reason = strings.Join(params[1:], " ")
	}
	return &klineData{Mask: normalizeKLineMask(mask), Reason: reason}
}

// normalizeKLineMask fills in a bare "host" mask to "*!*@host" and an
// "ident@host" mask to "*!ident@host". A bare word is taken as a host,
// unlike the ban mode's CheckSet, which takes it as a nick.
func normalizeKLineMask(mask string) string {
	if strings.Contains(mask, "@") {
		if strings.Contains(mask, "!") {
			return mask
		}
		return "*!" + mask
	}
	return "*!*@" + mask
}

func (c *klineCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *klineCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

func (c *klineCommand) Execute(actor *entity.User, data interface{}) {
	kd := data.(*klineData)
	d := c.mod.ircd

	if !actor.IsOper() {
		d.SendNumericToUser(actor, ircd.ERR_NOPRIVILEGES, "Permission Denied- You're not an IRC operator")
		return
	}

	if kd.Remove {
		if d.RemoveKLine(kd.Mask) {
			c.notice(d, actor, "*** K-line for "+kd.Mask+" removed")
		} else {
			c.notice(d, actor, "*** No K-line found for "+kd.Mask)
		}
		return
	}

	d.AddKLine(kd.Mask, kd.Reason)
	c.notice(d, actor, "*** K-line added for "+kd.Mask+": "+kd.Reason)
}

func (c *klineCommand) notice(d *ircd.IRCd, actor *entity.User, text string) {
	d.SendTo(actor.UUID, wire.Message{
		Prefix:  d.Self.Name,
		Command: "NOTICE",
		Params:  []string{actor.Nick, text},
	})
}
