package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"bytemomo/moray/internal/domain"
)

// TelnetProber drives a login(1)-style prompt: wait for the username prompt,
// send the username, wait for the password prompt, send the password, then
// classify whatever the server prints.
type TelnetProber struct {
	Port    uint16
	Timeout time.Duration

	UsernamePrompts []string
	PasswordPrompts []string
	FailureMarkers  []string
	SuccessMarkers  []string

	LoginPromptTimeout time.Duration
	PostLoginWait      time.Duration
}

// NewTelnetProber returns a prober with the prompts and markers of common
// login(1) and BusyBox implementations.
func NewTelnetProber(port uint16, timeout time.Duration) *TelnetProber {
	return &TelnetProber{
		Port:               port,
		Timeout:            timeout,
		UsernamePrompts:    []string{"login:", "username:", "user:"},
		PasswordPrompts:    []string{"password:"},
		FailureMarkers:     []string{"login incorrect", "authentication failure", "login failed", "incorrect", "denied"},
		SuccessMarkers:     []string{"last login", "busybox", "welcome"},
		LoginPromptTimeout: 5 * time.Second,
		PostLoginWait:      3 * time.Second,
	}
}

var errTelnetNoResponse = errors.New("no response after login")

func (p *TelnetProber) Probe(ctx context.Context, address, username, password string) error {
	if username == "" {
		return errors.New("empty username not supported for telnet")
	}
	addr := domain.JoinDefaultPort(address, p.Port)
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	client := &telnetClient{conn: conn}
	if deadline, ok := ctx.Deadline(); ok {
		client.deadline = deadline
	}

	if _, err := client.waitForPrompt(p.UsernamePrompts, p.LoginPromptTimeout); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if err := client.sendLine(username); err != nil {
		return fmt.Errorf("send username: %w", err)
	}
	if _, err := client.waitForPrompt(p.PasswordPrompts, p.LoginPromptTimeout); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if err := client.sendLine(password); err != nil {
		return fmt.Errorf("send password: %w", err)
	}

	output, err := client.collectOutput(p.PostLoginWait, p.settled)
	if err != nil {
		return fmt.Errorf("read login result: %w", err)
	}
	return p.classify(output)
}

// classify decides on the text printed after the password was sent.
func (p *TelnetProber) classify(output string) error {
	lower := strings.ToLower(output)
	if containsAny(lower, p.FailureMarkers) {
		return fmt.Errorf("%w: %s", ErrAuthRejected, firstLine(output))
	}
	// "Last login:" contains a username prompt, so markers win over re-prompts.
	if containsAny(lower, p.SuccessMarkers) || hasShellPrompt(output) {
		return nil
	}
	if containsAny(lower, p.PasswordPrompts) || containsAny(lower, p.UsernamePrompts) {
		return fmt.Errorf("%w: %s", ErrAuthRejected, firstLine(output))
	}
	if strings.TrimSpace(output) == "" {
		return fmt.Errorf("%w: %w", ErrAuthRejected, errTelnetNoResponse)
	}
	return nil
}

// settled reports whether output is already conclusive.
func (p *TelnetProber) settled(output string) bool {
	lower := strings.ToLower(output)
	return containsAny(lower, p.FailureMarkers) ||
		containsAny(lower, p.UsernamePrompts) ||
		containsAny(lower, p.PasswordPrompts) ||
		hasShellPrompt(output)
}

type telnetClient struct {
	conn     net.Conn
	deadline time.Time
}

func (c *telnetClient) sendLine(line string) error {
	return c.sendRaw(line + "\r\n")
}

func (c *telnetClient) sendRaw(payload string) error {
	if payload == "" {
		return nil
	}
	if !c.deadline.IsZero() {
		_ = c.conn.SetWriteDeadline(c.deadline)
	}
	_, err := c.conn.Write([]byte(payload))
	return err
}

// stepDeadline caps a phase timeout by the overall probe deadline.
func (c *telnetClient) stepDeadline(timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if !c.deadline.IsZero() && c.deadline.Before(d) {
		return c.deadline
	}
	return d
}

func (c *telnetClient) waitForPrompt(prompts []string, timeout time.Duration) (string, error) {
	deadline := c.stepDeadline(timeout)
	var buf strings.Builder
	for time.Now().Before(deadline) {
		chunk, err := c.readString(deadline)
		if err != nil {
			if isTimeout(err) {
				break
			}
			return buf.String(), err
		}
		buf.WriteString(chunk)
		if containsAny(strings.ToLower(buf.String()), prompts) {
			return buf.String(), nil
		}
	}
	return buf.String(), fmt.Errorf("timeout waiting for prompt (%v)", prompts)
}

// collectOutput reads until the window closes, the peer hangs up, or done
// says the output is conclusive.
func (c *telnetClient) collectOutput(window time.Duration, done func(string) bool) (string, error) {
	deadline := c.stepDeadline(window)
	var buf strings.Builder
	for time.Now().Before(deadline) {
		chunk, err := c.readString(deadline)
		if err != nil {
			if isTimeout(err) || errors.Is(err, io.EOF) {
				break
			}
			return buf.String(), err
		}
		buf.WriteString(chunk)
		if done(buf.String()) {
			break
		}
	}
	return buf.String(), nil
}

func (c *telnetClient) readString(deadline time.Time) (string, error) {
	_ = c.conn.SetReadDeadline(deadline)
	raw := make([]byte, 2048)
	n, err := c.conn.Read(raw)
	if n == 0 {
		if err == nil {
			return "", nil
		}
		return "", err
	}
	clean := c.filterTelnet(raw[:n])
	text := bytes.ReplaceAll(clean, []byte("\r\n"), []byte("\n"))
	text = bytes.ReplaceAll(text, []byte("\r"), []byte("\n"))
	return string(text), nil
}

const (
	iac  = 255
	dont = 254
	do   = 253
	wont = 252
	will = 251
	sb   = 250
	se   = 240
)

// filterTelnet strips option negotiation from data, refusing every option
// the server asks for.
func (c *telnetClient) filterTelnet(data []byte) []byte {
	buf := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != iac {
			buf = append(buf, b)
			continue
		}
		if i+1 >= len(data) {
			break
		}
		cmd := data[i+1]
		switch cmd {
		case iac:
			buf = append(buf, iac)
			i++
		case do, dont, will, wont:
			if i+2 >= len(data) {
				i = len(data)
				break
			}
			c.respondNegotiation(cmd, data[i+2])
			i += 2
		case sb:
			j := i + 2
			for j < len(data)-1 {
				if data[j] == iac && data[j+1] == se {
					break
				}
				j++
			}
			i = j + 1
		default:
			i++
		}
	}
	return buf
}

func (c *telnetClient) respondNegotiation(cmd, opt byte) {
	var resp []byte
	switch cmd {
	case do:
		resp = []byte{iac, wont, opt}
	case will:
		resp = []byte{iac, dont, opt}
	default:
		return
	}
	_, _ = c.conn.Write(resp)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		needle = strings.ToLower(needle)
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func hasShellPrompt(output string) bool {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return false
	}
	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return false
	}
	for _, suffix := range []string{"#", "$", ">", "%"} {
		if strings.HasSuffix(last, suffix) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return strings.TrimSpace(s)
}
