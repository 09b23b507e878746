package testutil

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
)

// MQTTConfig configures the mock MQTT broker behavior.
type MQTTConfig struct {
	AllowAnonymous bool
	ValidUsers     map[string]string // username -> password
}

// MockMQTTBroker implements the CONNECT handshake of MQTT 3.1.1.
type MockMQTTBroker struct {
	*MockTCPServer
	config MQTTConfig

	mu              sync.Mutex
	ConnectCount    int
	DisconnectCount int
}

// NewMockMQTTBroker creates a mock MQTT broker.
func NewMockMQTTBroker(config MQTTConfig) *MockMQTTBroker {
	b := &MockMQTTBroker{config: config}
	b.MockTCPServer = NewMockTCPServer(b.handleConnection)
	return b
}

// Connects returns how many CONNECT packets the broker has seen.
func (b *MockMQTTBroker) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ConnectCount
}

const (
	connackAccepted       = 0x00
	connackBadProtocol    = 0x01
	connackBadCredentials = 0x04
	connackNotAuthorized  = 0x05
)

func (b *MockMQTTBroker) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		header := make([]byte, 1)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		remainingLength, err := readRemainingLength(conn)
		if err != nil {
			return
		}
		payload := make([]byte, remainingLength)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		switch header[0] >> 4 {
		case 1: // CONNECT
			b.mu.Lock()
			b.ConnectCount++
			b.mu.Unlock()
			if rc := b.handleConnect(payload); rc != connackAccepted {
				sendConnack(conn, rc)
				return
			}
			sendConnack(conn, connackAccepted)
		case 12: // PINGREQ
			conn.Write([]byte{0xD0, 0x00})
		case 14: // DISCONNECT
			b.mu.Lock()
			b.DisconnectCount++
			b.mu.Unlock()
			return
		}
	}
}

func readRemainingLength(r io.Reader) (int, error) {
	var (
		value      int
		multiplier = 1
		b          = make([]byte, 1)
	)
	for range 4 {
		if _, err := io.ReadFull(r, b); err != nil {
			return 0, err
		}
		value += int(b[0]&127) * multiplier
		if b[0]&128 == 0 {
			break
		}
		multiplier *= 128
	}
	return value, nil
}

func (b *MockMQTTBroker) handleConnect(payload []byte) byte {
	// Protocol name (2+4) + level (1) + flags (1) + keepalive (2)
	if len(payload) < 10 || payload[6] != 4 {
		return connackBadProtocol
	}
	flags := payload[7]
	idx := 10

	if _, next, ok := readString(payload, idx); ok {
		idx = next
	} else {
		return connackBadProtocol
	}
	if flags&0x04 != 0 { // will topic + message
		for range 2 {
			_, next, ok := readString(payload, idx)
			if !ok {
				return connackBadProtocol
			}
			idx = next
		}
	}

	hasUsername := flags&0x80 != 0
	hasPassword := flags&0x40 != 0
	if !hasUsername {
		if b.config.AllowAnonymous {
			return connackAccepted
		}
		return connackNotAuthorized
	}

	username, next, ok := readString(payload, idx)
	if !ok {
		return connackBadProtocol
	}
	idx = next
	var password string
	if hasPassword {
		if password, _, ok = readString(payload, idx); !ok {
			return connackBadProtocol
		}
	}

	if want, ok := b.config.ValidUsers[username]; ok && want == password {
		return connackAccepted
	}
	return connackBadCredentials
}

func readString(buf []byte, idx int) (string, int, bool) {
	if idx+2 > len(buf) {
		return "", idx, false
	}
	n := int(binary.BigEndian.Uint16(buf[idx:]))
	idx += 2
	if idx+n > len(buf) {
		return "", idx, false
	}
	return string(buf[idx : idx+n]), idx + n, true
}

func sendConnack(conn net.Conn, rc byte) {
	// CONNACK: type(1) + remaining(1) + session present(1) + return code(1)
	conn.Write([]byte{0x20, 0x02, 0x00, rc})
}
