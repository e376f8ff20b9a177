package rfc

import (
	"strings"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
)

type operCommand struct{ mod *Module }

func (c *operCommand) Name() string                    { return "OPER" }
func (c *operCommand) Priority() int                    { return 0 }
func (c *operCommand) ForRegistered() command.Registration { return command.RequireRegistered }

type operData struct {
	Name     string
	Password string
}

func (c *operCommand) ParseParams(actor *entity.User, params []string, sink *command.ErrorSink) interface{} {
	if len(params) < 2 {
		sink.SendSingleError(ircd.ERR_NEEDMOREPARAMS, "OPER :Not enough parameters")
		return nil
	}
	return &operData{Name: params[0], Password: params[1]}
}

func (c *operCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (c *operCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }

// Execute grants the 'o' user mode once the name/password pair matches
// a configured oper block and the connection's host matches one of the
// configured oper_hosts masks.
func (c *operCommand) Execute(actor *entity.User, data interface{}) {
	od := data.(*operData)
	d := c.mod.ircd

	expected, exists := d.Config.Opers[od.Name]
	if !exists || expected != od.Password {
		d.SendNumericToUser(actor, "491", "Password incorrect")
		return
	}

	if len(d.Config.OperHosts) > 0 && !hostAllowed(d.Config.OperHosts, actor.Host.Real) {
		d.SendNumericToUser(actor, "491", "Password incorrect")
		return
	}

	d.SetUserModes(actor, []ircd.ModeChange{{Adding: true, Letter: 'o'}})
	d.SendNumericToUser(actor, "381", "You are now an IRC operator")
}

func hostAllowed(masks []string, host string) bool {
	for _, mask := range masks {
		if matchHostMask(mask, host) {
			return true
		}
	}
	return false
}

// matchHostMask is a plain "*"/"?" glob match, the same grammar ban
// masks use, kept local since oper_hosts is not a ban-list concept and
// should not depend on the banmode module.
func matchHostMask(pattern, host string) bool {
	pattern = strings.ToLower(pattern)
	host = strings.ToLower(host)
	return globMatch(pattern, host)
}

func globMatch(pattern, s string) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	}
}
