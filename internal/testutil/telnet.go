package testutil

import (
	"bufio"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// TelnetServer emulates a login(1) prompt. It opens with an IAC DO ECHO
// negotiation so clients have to filter option bytes.
type TelnetServer struct {
	*MockTCPServer
	users    map[string]string
	attempts atomic.Int32

	// Banner is printed after a successful login.
	Banner string
	// Silent makes the server accept connections and never answer.
	Silent bool
}

func NewTelnetServer(users map[string]string) *TelnetServer {
	s := &TelnetServer{users: users, Banner: "Last login: Mon Oct 19 10:00:00\r\nuser@box:~$ "}
	s.MockTCPServer = NewMockTCPServer(s.handle)
	return s
}

func (s *TelnetServer) Attempts() int { return int(s.attempts.Load()) }

func (s *TelnetServer) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	if s.Silent {
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}

	const iac, do, echo = 255, 253, 1
	if _, err := conn.Write([]byte{iac, do, echo}); err != nil {
		return
	}

	r := bufio.NewReader(conn)
	for {
		if _, err := conn.Write([]byte("\r\nbox login: ")); err != nil {
			return
		}
		user, err := readLine(r)
		if err != nil {
			return
		}
		if user == "" {
			continue
		}
		if _, err := conn.Write([]byte("Password: ")); err != nil {
			return
		}
		pass, err := readLine(r)
		if err != nil {
			return
		}
		s.attempts.Add(1)

		if want, ok := s.users[user]; ok && want == pass {
			conn.Write([]byte("\r\n" + s.Banner))
			time.Sleep(50 * time.Millisecond)
			return
		}
		if _, err := conn.Write([]byte("\r\nLogin incorrect\r\n")); err != nil {
			return
		}
	}
}

// readLine reads a CRLF terminated line, dropping telnet option replies.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case 255:
			// IAC <cmd> <opt>
			if _, err := r.Discard(2); err != nil {
				return "", err
			}
		case '\r':
		case '\n', 0:
			return sb.String(), nil
		default:
			sb.WriteByte(b)
		}
	}
}
