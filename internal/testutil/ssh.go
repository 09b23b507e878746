package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/crypto/ssh"
)

// SSHServer accepts password logins listed in users and rejects every
// channel request.
type SSHServer struct {
	*MockTCPServer
	config   *ssh.ServerConfig
	attempts atomic.Int32
}

func NewSSHServer(users map[string]string) (*SSHServer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("host key signer: %w", err)
	}

	s := &SSHServer{}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			s.attempts.Add(1)
			if want, ok := users[c.User()]; ok && want == string(pass) {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	s.config.AddHostKey(signer)
	s.MockTCPServer = NewMockTCPServer(s.handle)
	return s, nil
}

// Attempts is the number of password callbacks served so far.
func (s *SSHServer) Attempts() int { return int(s.attempts.Load()) }

func (s *SSHServer) handle(conn net.Conn) {
	defer conn.Close()
	sc, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)
	for ch := range chans {
		ch.Reject(ssh.Prohibited, "no channels")
	}
}
