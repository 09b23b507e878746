package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"bytemomo/moray/internal/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

const defaultClientIDPrefix = "moray"

// MQTTProber sends an MQTT 3.1.1 CONNECT with the credential and treats an
// accepted CONNACK as success.
type MQTTProber struct {
	Port           uint16
	Timeout        time.Duration
	ClientIDPrefix string

	seq atomic.Uint64
}

func (p *MQTTProber) Probe(ctx context.Context, address, username, password string) error {
	addr := domain.JoinDefaultPort(address, p.Port)
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	prefix := p.ClientIDPrefix
	if prefix == "" {
		prefix = defaultClientIDPrefix
	}
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + addr).
		SetClientID(fmt.Sprintf("%s-%06d", prefix, p.seq.Add(1))).
		SetUsername(username).
		SetPassword(password).
		SetProtocolVersion(4).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false)
	if p.Timeout > 0 {
		opts.SetConnectTimeout(p.Timeout)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		// Aborts the pending connection attempt.
		client.Disconnect(0)
		return fmt.Errorf("connect: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		if isMQTTAuthFailure(err) {
			return fmt.Errorf("%w: %v", ErrAuthRejected, err)
		}
		return fmt.Errorf("connect: %w", err)
	}
	client.Disconnect(0)
	return nil
}

func isMQTTAuthFailure(err error) bool {
	if errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) || errors.Is(err, packets.ErrorRefusedNotAuthorised) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, packets.ErrorRefusedBadUsernameOrPassword.Error()) ||
		strings.Contains(msg, packets.ErrorRefusedNotAuthorised.Error())
}
