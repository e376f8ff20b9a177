package config

import (
	"fmt"
	"strings"
)

// Endpoint is a single parsed bind descriptor, e.g. "tcp:6667" or
// "ssl:6697:certKey=/etc/ssl/key.pem".
type Endpoint struct {
	// Proto is "tcp" or "ssl".
	Proto string

	// Port is the port to listen on.
	Port string

	// Params holds any trailing key=value segments, e.g. certKey.
	Params map[string]string
}

// ParseEndpoint parses a raw endpoint descriptor of the form
// "proto:port[:key=value]*". A literal ':' inside a value must be
// escaped as "\:".
func ParseEndpoint(raw string) (Endpoint, error) {
	parts := splitUnescaped(raw, ':')
	if len(parts) < 2 {
		return Endpoint{}, fmt.Errorf("endpoint %q: expected at least proto:port", raw)
	}

	proto := parts[0]
	if proto != "tcp" && proto != "ssl" {
		return Endpoint{}, fmt.Errorf("endpoint %q: unknown protocol %q", raw, proto)
	}

	port := parts[1]
	if len(port) == 0 {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing port", raw)
	}

	ep := Endpoint{
		Proto:  proto,
		Port:   port,
		Params: map[string]string{},
	}

	for _, kv := range parts[2:] {
		idx := strings.Index(kv, "=")
		if idx == -1 {
			return Endpoint{}, fmt.Errorf("endpoint %q: parameter %q is not key=value", raw, kv)
		}
		ep.Params[kv[:idx]] = kv[idx+1:]
	}

	return ep, nil
}

// splitUnescaped splits s on sep, treating "\"+sep as a literal,
// non-splitting occurrence of sep.
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == sep {
			cur.WriteByte(sep)
			i++
			continue
		}
		if s[i] == sep {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	parts = append(parts, cur.String())

	return parts
}
