package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadFlatMap reads a flat "key = value" config file into a string map.
// This is the bootstrap/fixture format used by tests: comments begin
// with '#' (leading whitespace allowed), blank values are permitted, and
// a key may not be defined twice.
func ReadFlatMap(path string) (map[string]string, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = fi.Close() }()

	out := make(map[string]string)

	scanner := bufio.NewScanner(fi)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		if len(key) == 0 {
			return nil, fmt.Errorf("config key length is 0")
		}
		if _, exists := out[key]; exists {
			return nil, fmt.Errorf("config key defined twice: %s", key)
		}

		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	return out, nil
}

// DocumentFromFlatMap builds a minimal Document out of a flat key/value
// map, for use by tests that want to stand up an Ircd without writing a
// full YAML fixture. Only the keys a test cares about need be present;
// defaults are applied the same as for Load.
func DocumentFromFlatMap(raw map[string]string) (*Document, error) {
	doc := &Document{}

	doc.Name = raw["name"]
	doc.Hostname = raw["hostname"]
	doc.MOTD = raw["motd"]

	if v, ok := raw["bind_client"]; ok && len(v) > 0 {
		doc.BindClient = strings.Split(v, ",")
	}
	if v, ok := raw["bind_server"]; ok && len(v) > 0 {
		doc.BindServer = strings.Split(v, ",")
	}
	if v, ok := raw["modules"]; ok && len(v) > 0 {
		doc.Modules = strings.Split(v, ",")
	}

	var err error
	if doc.PingInterval, err = intOrZero(raw, "ping_interval"); err != nil {
		return nil, err
	}
	if doc.TimeoutDelay, err = intOrZero(raw, "timeout_delay"); err != nil {
		return nil, err
	}
	if doc.ClientTimeout, err = intOrZero(raw, "client_timeout"); err != nil {
		return nil, err
	}
	if doc.KickLength, err = intOrZero(raw, "kick_length"); err != nil {
		return nil, err
	}
	if doc.ConnlimitGlobalMax, err = intOrZero(raw, "connlimit_globmax"); err != nil {
		return nil, err
	}
	if doc.MaxConnectionsPerPeer, err = intOrZero(raw, "maxconnectionsperpeer"); err != nil {
		return nil, err
	}

	doc.applyDefaults()

	if err := doc.validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

func intOrZero(raw map[string]string, key string) (int, error) {
	v, ok := raw[key]
	if !ok || len(v) == 0 {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "config key %s", key)
	}
	return n, nil
}
