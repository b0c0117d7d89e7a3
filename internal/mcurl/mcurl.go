// Package mcurl parses and formats game server addresses given by users.
package mcurl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Addr is a server address as entered by a user. Port zero means the game's
// default port.
type Addr struct {
	Host string
	Port int
}

// ErrEmptyHost is returned when no host remains after stripping the scheme.
var ErrEmptyHost = errors.New("empty host")

// Parse accepts "host", "host:port" and "scheme://host:port" forms.
func Parse(raw string) (Addr, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "//"); idx >= 0 {
		s = s[idx+2:]
	}

	host, portStr, hasPort := strings.Cut(s, ":")
	if host == "" {
		return Addr{}, ErrEmptyHost
	}
	if strings.ContainsAny(host, " /?#") {
		return Addr{}, fmt.Errorf("invalid host %q", host)
	}

	if !hasPort {
		return Addr{Host: host}, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Addr{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if port < 1 || port > 65535 {
		return Addr{}, fmt.Errorf("port %d out of range", port)
	}

	return Addr{Host: host, Port: port}, nil
}

// Format renders the address back as "host" or "host:port".
func (a Addr) Format() string {
	if a.Port == 0 {
		return a.Host
	}
	return a.Host + ":" + strconv.Itoa(a.Port)
}
