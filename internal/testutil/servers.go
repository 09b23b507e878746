// Package testutil provides in-process servers that speak just enough of
// each supported protocol to exercise the probes.
package testutil

import (
	"fmt"
	"net"
	"sync"
)

// MockTCPServer accepts connections on a loopback port and hands each one
// to handler.
type MockTCPServer struct {
	listener net.Listener
	handler  func(net.Conn)
	wg       sync.WaitGroup
	closed   bool
	mu       sync.Mutex
}

// NewMockTCPServer creates a TCP server that calls handler for each connection.
func NewMockTCPServer(handler func(net.Conn)) *MockTCPServer {
	return &MockTCPServer{handler: handler}
}

// Start starts the server on a random port.
func (s *MockTCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *MockTCPServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler(conn)
		}()
	}
}

// Stop closes the listener and waits for in-flight handlers.
func (s *MockTCPServer) Stop() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server address.
func (s *MockTCPServer) Addr() string {
	return s.listener.Addr().String()
}

// Port returns the server port.
func (s *MockTCPServer) Port() uint16 {
	return uint16(s.listener.Addr().(*net.TCPAddr).Port)
}

// ClosedPort returns a loopback address nothing listens on.
func ClosedPort() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr, nil
}
