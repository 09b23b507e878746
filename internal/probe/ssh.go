package probe

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"bytemomo/moray/internal/domain"

	"golang.org/x/crypto/ssh"
)

// SSHProber tries password authentication against an SSH server. Host keys
// are not verified.
type SSHProber struct {
	Port    uint16
	Timeout time.Duration
}

func (p *SSHProber) Probe(ctx context.Context, address, username, password string) error {
	addr := domain.JoinDefaultPort(address, p.Port)
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.Timeout,
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		if isSSHAuthFailure(err) {
			return fmt.Errorf("%w: %v", ErrAuthRejected, err)
		}
		return fmt.Errorf("handshake: %w", err)
	}
	_ = ssh.NewClient(c, chans, reqs).Close()
	return nil
}

func isSSHAuthFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}
