package ircd

import (
	"github.com/horgh/ironrelay/internal/conn"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/wire"
)

// Numeric replies. Command modules format their own trailing text; this
// file only fixes the numeric itself so it is named once, collected
// here since many different packages need the same numerics.
const (
	RPL_WELCOME  = "001"
	RPL_YOURHOST = "002"
	RPL_CREATED  = "003"
	RPL_MYINFO   = "004"
	RPL_ISUPPORT = "005"

	RPL_CREATIONTIME  = "329"
	RPL_WHOISACCOUNT  = "330"
	RPL_TOPICWHOTIME  = "333"
	RPL_BANLIST       = "367"
	RPL_ENDOFBANLIST  = "368"
	RPL_WHOISSECURE   = "671"

	ERR_NOSUCHNICK       = "401"
	ERR_NOSUCHSERVER     = "402"
	ERR_NOSUCHCHANNEL    = "403"
	ERR_CANNOTSENDTOCHAN = "404"
	ERR_UNKNOWNCOMMAND   = "421"
	ERR_NONICKNAMEGIVEN  = "431"
	ERR_ERRONEUSNICKNAME = "432"
	ERR_NICKNAMEINUSE    = "433"
	ERR_USERNOTINCHANNEL = "441"
	ERR_NOTONCHANNEL     = "442"
	ERR_USERONCHANNEL    = "443"
	ERR_NOTREGISTERED    = "451"
	ERR_NEEDMOREPARAMS   = "461"
	ERR_ALREADYREGISTRED = "462"
	ERR_KEYSET           = "467"
	ERR_CHANNELISFULL    = "471"
	ERR_UNKNOWNMODE      = "472"
	ERR_INVITEONLYCHAN   = "473"
	ERR_BANNEDFROMCHAN   = "474"
	ERR_BADCHANNELKEY    = "475"
	ERR_NOPRIVILEGES     = "481"
	ERR_CHANOPRIVSNEEDED = "482"
	ERR_USERSDONTMATCH   = "502"

	// RPL_SERVICEERROR is the custom service-module error numeric, shaped
	// "955 <TYPE> <SUBTYPE> <ERROR>".
	RPL_SERVICEERROR = "955"
)

// SendNumeric writes a numeric reply to c, prefixed from this server,
// targeted at nick (the recipient's current displayed nick, or "*"
// before registration names one).
func (d *IRCd) SendNumeric(c *conn.Connection, nick string, numeric string, params ...string) {
	full := append([]string{nick}, params...)
	c.Send(wire.Message{
		Prefix:  d.Self.Name,
		Command: numeric,
		Params:  full,
	})
}

// SendNumericToUser is SendNumeric for a registered local user looked
// up by ID, a no-op if the user has no local connection (e.g. a remote
// user, or one that already disconnected).
func (d *IRCd) SendNumericToUser(u *entity.User, numeric string, params ...string) {
	c, ok := d.userConns[u.UUID]
	if !ok {
		return
	}
	d.SendNumeric(c, u.Nick, numeric, params...)
}
