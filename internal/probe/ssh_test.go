package probe

import (
	"context"
	"testing"
	"time"

	"bytemomo/moray/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSSHServer(t *testing.T, users map[string]string) *testutil.SSHServer {
	t.Helper()
	server, err := testutil.NewSSHServer(users)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() { server.Stop() })
	return server
}

func TestSSHProbe_ValidPassword(t *testing.T) {
	server := startSSHServer(t, map[string]string{"root": "toor"})

	p := &SSHProber{Port: server.Port(), Timeout: 5 * time.Second}
	err := p.Probe(context.Background(), "127.0.0.1", "root", "toor")

	assert.NoError(t, err)
	assert.Equal(t, 1, server.Attempts())
}

func TestSSHProbe_WrongPassword(t *testing.T) {
	server := startSSHServer(t, map[string]string{"root": "toor"})

	p := &SSHProber{Port: 22, Timeout: 5 * time.Second}
	err := p.Probe(context.Background(), server.Addr(), "root", "nope")

	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestSSHProbe_ClosedPort(t *testing.T) {
	addr, err := testutil.ClosedPort()
	require.NoError(t, err)

	p := &SSHProber{Port: 22, Timeout: time.Second}
	err = p.Probe(context.Background(), addr, "root", "toor")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthRejected)
}

func TestSSHProbe_CancelledContext(t *testing.T) {
	server := startSSHServer(t, map[string]string{"root": "toor"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &SSHProber{Port: server.Port(), Timeout: time.Second}
	assert.Error(t, p.Probe(ctx, "127.0.0.1", "root", "toor"))
}
