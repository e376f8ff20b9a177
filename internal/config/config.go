// Package config loads and validates the daemon's configuration document.
package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Document is the structured configuration for the daemon. It is
// populated from a YAML file by Load.
type Document struct {
	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"`

	BindClient []string `yaml:"bind_client"`
	BindServer []string `yaml:"bind_server"`

	Modules []string `yaml:"modules"`

	MOTD           string `yaml:"motd"`
	MOTDLineLength int    `yaml:"motd_line_length"`

	ClientTimeout int `yaml:"client_timeout"`
	PingInterval  int `yaml:"ping_interval"`
	TimeoutDelay  int `yaml:"timeout_delay"`

	OperHosts []string          `yaml:"oper_hosts"`
	Opers     map[string]string `yaml:"opers"`

	Vhosts []string `yaml:"vhosts"`

	LogDir  string `yaml:"log_dir"`
	MaxData int    `yaml:"max_data"`

	MaxConnectionsPerPeer int      `yaml:"maxConnectionsPerPeer"`
	MaxConnectionExempt   []string `yaml:"maxConnectionExempt"`

	KickLength        int `yaml:"kick_length"`
	IdentLength       int `yaml:"ident_length"`
	GECOSLength       int `yaml:"gecos_length"`
	PartMessageLength int `yaml:"part_message_length"`

	ConnlimitGlobalMax int      `yaml:"connlimit_globmax"`
	ConnlimitWhitelist []string `yaml:"connlimit_whitelist"`

	// KLines preloads the operator-settable server ban list (nick!ident@host
	// glob -> reason) at startup, in addition to whatever KLINE adds at
	// runtime.
	KLines map[string]string `yaml:"klines"`

	// Links lists the servers CONNECT is permitted to dial out to, keyed
	// by server name.
	Links map[string]LinkSpec `yaml:"links"`

	// Extra holds any module-specific keys the document contained that
	// are not part of the core schema above. Modules read their own keys
	// out of this via verifyConfig.
	Extra map[string]interface{} `yaml:",inline"`
}

// LinkSpec is one entry in Links: the address and shared secret CONNECT
// needs to dial and authenticate a named peer server.
type LinkSpec struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Pass     string `yaml:"pass"`
	TLS      bool   `yaml:"tls"`
}

// Defaults are applied by applyDefaults to any zero-valued field that has
// a sensible non-zero default.
const (
	DefaultMOTDLineLength = 80
	DefaultPingInterval   = 30
	DefaultTimeoutDelay   = 90
	DefaultKickLength     = 255
	DefaultIdentLength    = 10
	DefaultGECOSLength    = 50
	DefaultPartLength     = 300
)

// Load reads and parses a YAML configuration document from path,
// applies defaults, and runs built-in validation. It does not run
// per-module verifyConfig hooks; callers run each module's hook just
// before loading that module.
func Load(path string) (*Document, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	doc := &Document{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	doc.applyDefaults()

	if err := doc.validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return doc, nil
}

func (d *Document) applyDefaults() {
	if d.MOTDLineLength == 0 {
		d.MOTDLineLength = DefaultMOTDLineLength
	}
	if d.PingInterval == 0 {
		d.PingInterval = DefaultPingInterval
	}
	if d.TimeoutDelay == 0 {
		d.TimeoutDelay = DefaultTimeoutDelay
	}
	if d.KickLength == 0 {
		d.KickLength = DefaultKickLength
	}
	if d.IdentLength == 0 {
		d.IdentLength = DefaultIdentLength
	}
	if d.GECOSLength == 0 {
		d.GECOSLength = DefaultGECOSLength
	}
	if d.PartMessageLength == 0 {
		d.PartMessageLength = DefaultPartLength
	}
}

// validate checks the built-in, non-module-specific invariants.
func (d *Document) validate() error {
	if len(d.Name) == 0 {
		return &ValidationError{Key: "name", Reason: "must not be blank"}
	}
	if len(d.Hostname) == 0 {
		return &ValidationError{Key: "hostname", Reason: "must not be blank"}
	}
	if len(d.BindClient) == 0 && len(d.BindServer) == 0 {
		return &ValidationError{Key: "bind_client", Reason: "must bind at least one client or server listener"}
	}
	if d.KickLength > 255 {
		return &ValidationError{Key: "kick_length", Reason: "must be <= 255"}
	}

	for _, raw := range d.BindClient {
		if _, err := ParseEndpoint(raw); err != nil {
			return &ValidationError{Key: "bind_client", Reason: err.Error()}
		}
	}
	for _, raw := range d.BindServer {
		if _, err := ParseEndpoint(raw); err != nil {
			return &ValidationError{Key: "bind_server", Reason: err.Error()}
		}
	}

	return nil
}

// ValidationError reports a problem with a single configuration key. A
// module's verifyConfig hook should return one of these (wrapped or
// bare) when it rejects a module-specific key; it aborts the load.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return errors.Errorf("config key %q: %s", e.Key, e.Reason).Error()
}
