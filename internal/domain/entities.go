package domain

import (
	"net"
	"strconv"
	"strings"
)

// Host is a deduplicated target address with a run-stable index.
type Host struct {
	Index   int
	Address string
}

func (h Host) String() string { return h.Address }

// Credential is a username/password pair from the wordlist.
type Credential struct {
	Username string
	Password string
}

func (c Credential) String() string { return c.Username + ":" + c.Password }

// ProbeTask pairs one host with one credential.
type ProbeTask struct {
	Host       Host
	Credential Credential
}

// JoinDefaultPort returns the host:port a probe should connect to. Addresses
// that already carry a port keep it; bare IPv6 literals are bracketed.
func JoinDefaultPort(addr string, port uint16) string {
	if host, p, err := net.SplitHostPort(addr); err == nil && host != "" && p != "" {
		return addr
	}
	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
