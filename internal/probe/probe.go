// Package probe implements the authentication attempts the dispatcher runs:
// one connection, one handshake, one password login per call.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bytemomo/moray/internal/domain"
)

var (
	// ErrAuthRejected wraps failures where the service answered but refused
	// the credential.
	ErrAuthRejected    = errors.New("authentication rejected")
	ErrUnknownProtocol = errors.New("unknown protocol")
)

// Options are shared by every protocol.
type Options struct {
	// Port is used for addresses without an explicit port. Zero selects the
	// protocol's well-known port.
	Port    uint16
	Timeout time.Duration
}

var defaultPorts = map[string]uint16{
	"ssh":    22,
	"telnet": 23,
	"mqtt":   1883,
}

// DefaultPort returns the well-known port of protocol.
func DefaultPort(protocol string) (uint16, bool) {
	p, ok := defaultPorts[strings.ToLower(protocol)]
	return p, ok
}

// Protocols lists the supported protocol names.
func Protocols() []string {
	out := make([]string, 0, len(defaultPorts))
	for name := range defaultPorts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the prober for protocol.
func New(protocol string, opts Options) (domain.Prober, error) {
	name := strings.ToLower(protocol)
	port, ok := defaultPorts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProtocol, protocol, strings.Join(Protocols(), ", "))
	}
	if opts.Port != 0 {
		port = opts.Port
	}

	switch name {
	case "ssh":
		return &SSHProber{Port: port, Timeout: opts.Timeout}, nil
	case "telnet":
		return NewTelnetProber(port, opts.Timeout), nil
	default:
		return &MQTTProber{Port: port, Timeout: opts.Timeout}, nil
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
