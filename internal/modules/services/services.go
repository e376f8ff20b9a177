// Package services implements channel registration (the 'r' channel
// mode): a registered channel survives becoming empty and is owned by
// an account name, persisted through a small
// keyed-blob Store interface. Grounded on original_source's
// channel_register.py, which this port keeps the shape of while
// dropping the full account subsystem that file assumes (no
// "checkaccountexists"/"accountfromnick" action network here); account
// names are accepted as opaque strings instead.
package services

import (
	"time"

	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/entity"
	"github.com/horgh/ironrelay/internal/ircd"
	"github.com/horgh/ironrelay/internal/modeset"
	"github.com/horgh/ironrelay/internal/module"
)

// Store is the persistence interface channel registration records go
// through, an external collaborator specified only at its interface:
// who implements it (flat file, KV store, SQL) is out of scope for this
// module.
type Store interface {
	// Put saves or replaces the registration record for channel.
	Put(channel string, record Record) error
	// Get loads the registration record for channel, ok false if none.
	Get(channel string) (Record, bool)
	// Delete removes a channel's registration record.
	Delete(channel string) error
	// ByAccount lists every channel name registered to account.
	ByAccount(account string) []string
}

// Record is the persisted state of a registered channel.
type Record struct {
	Account    string
	RegisteredAt time.Time
	Topic      string
	TopicSetter string
}

// MemoryStore is an in-memory Store implementation, the stub this
// module ships with absent a real backing collaborator.
type MemoryStore struct {
	records map[string]Record
	index   map[string][]string
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}, index: map[string][]string{}}
}

func (s *MemoryStore) Put(channel string, record Record) error {
	if old, ok := s.records[channel]; ok && old.Account != record.Account {
		s.removeFromIndex(old.Account, channel)
	}
	s.records[channel] = record
	s.index[record.Account] = appendUnique(s.index[record.Account], channel)
	return nil
}

func (s *MemoryStore) Get(channel string) (Record, bool) {
	r, ok := s.records[channel]
	return r, ok
}

func (s *MemoryStore) Delete(channel string) error {
	if r, ok := s.records[channel]; ok {
		s.removeFromIndex(r.Account, channel)
		delete(s.records, channel)
	}
	return nil
}

func (s *MemoryStore) ByAccount(account string) []string {
	out := make([]string, len(s.index[account]))
	copy(out, s.index[account])
	return out
}

func (s *MemoryStore) removeFromIndex(account, channel string) {
	list := s.index[account]
	for i, c := range list {
		if c == channel {
			s.index[account] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Module is the services module.
type Module struct {
	ircd  *ircd.IRCd
	store Store
}

// New constructs a services Module backed by store. Pass
// NewMemoryStore() for the bundled stub.
func New(store Store) *Module {
	return &Module{store: store}
}

func (m *Module) Name() string              { return "services" }
func (m *Module) Core() bool                { return false }
func (m *Module) RequiredOnAllServers() bool { return false }

func (m *Module) ChannelModes() []module.ChannelModeSpec {
	return []module.ChannelModeSpec{
		{Letter: 'r', Category: modeset.Param, Impl: regImpl{}},
	}
}

func (m *Module) UserModes() []module.UserModeSpec { return nil }

func (m *Module) Actions() []module.ActionSpec {
	return []module.ActionSpec{
		{Name: "modepermission-channel-r", Priority: 10, Handler: m.checkUnsetAccount},
		{Name: "modechange-channel-r", Priority: 10, Handler: m.onRegistrationChange},
		{Name: "modechanges-channel", Priority: 10, Handler: m.onModeChanges},
	}
}

func (m *Module) UserCommands() []command.UserCommand     { return nil }
func (m *Module) ServerCommands() []command.ServerCommand { return nil }

func (m *Module) Load() error {
	return nil
}

func (m *Module) Unload() error                                 { return nil }
func (m *Module) FullUnload() error                              { return nil }
func (m *Module) Rehash() error                                  { return nil }
func (m *Module) VerifyConfig(raw map[string]interface{}) error { return nil }

// HookIRCd binds the module to the daemon handle. Records already in
// the store are not read back into the daemon's channels.
func (m *Module) HookIRCd(i interface{}) {
	m.ircd = i.(*ircd.IRCd)
}

// regImpl is the 'r' mode's Param-category implementation: any
// non-empty account name is accepted as the owning account (an
// "accountfromnick"-style lookup would normally validate it, but that
// action network does not exist in this port).
type regImpl struct{}

func (regImpl) CheckSet(param string) ([]string, error) {
	if len(param) == 0 {
		return nil, errNoAccount
	}
	return []string{param}, nil
}

func (regImpl) CheckUnset(param string) ([]string, error) {
	return []string{param}, nil
}

var errNoAccount = ircdError("channel registration requires an account name")

type ircdError string

func (e ircdError) Error() string { return string(e) }

// checkUnsetAccount vetoes an unset (-r) unless the acting user's
// "account" metadata matches the channel's current owning account,
// replying with the services error numeric on denial. Called from
// modepermission-channel-r, whose args are (channel, chg, source nick).
func (m *Module) checkUnsetAccount(args ...interface{}) interface{} {
	if len(args) < 3 {
		return nil
	}
	channel, ok := args[0].(*entity.Channel)
	if !ok {
		return nil
	}
	chg, ok := args[1].(ircd.ModeChange)
	if !ok || chg.Adding {
		return nil
	}
	source, _ := args[2].(string)

	actor, ok := m.ircd.LookupNick(source)
	if !ok {
		return nil
	}

	account, hasAccount := actor.Metadata["account"]
	owner := channel.Modes['r']
	if hasAccount && account == owner {
		return nil
	}

	m.ircd.SendNumericToUser(actor, ircd.RPL_SERVICEERROR, "CHANNEL", "DROP", "WRONGACCOUNT")
	return false
}

// onRegistrationChange persists (or removes) channel's registration
// record when 'r' is set or unset, and flips Channel.Registered so a
// registered channel survives becoming empty. Called from
// modechange-channel-r, whose args are (channel, appliedChange).
func (m *Module) onRegistrationChange(args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	channel, ok := args[0].(*entity.Channel)
	if !ok {
		return nil
	}
	chg, ok := args[1].(ircd.ModeChange)
	if !ok {
		return nil
	}

	if chg.Adding {
		channel.Registered = true
		account := channel.Modes['r']
		_ = m.store.Put(channel.Name, Record{
			Account:      account,
			RegisteredAt: time.Now(),
			Topic:        channel.Topic.Text,
			TopicSetter:  channel.Topic.Setter,
		})
		return nil
	}

	channel.Registered = false
	_ = m.store.Delete(channel.Name)
	return nil
}

// onModeChanges refreshes a registered channel's stored topic after any
// bulk mode change. Record holds no mode snapshot, so the channel's
// modes themselves are not persisted.
func (m *Module) onModeChanges(args ...interface{}) interface{} {
	channel, ok := args[0].(*entity.Channel)
	if !ok {
		return nil
	}
	if !channel.Registered {
		return nil
	}
	record, ok := m.store.Get(channel.Name)
	if !ok {
		return nil
	}
	record.Topic = channel.Topic.Text
	_ = m.store.Put(channel.Name, record)
	return nil
}
