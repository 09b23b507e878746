// Package loader reads the host list and the username:password wordlist.
package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"bytemomo/moray/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Inputs is everything a run needs from disk.
type Inputs struct {
	Hosts       []string
	Credentials []domain.Credential
}

// Load reads both lists concurrently. Any error aborts the run before a
// single probe is attempted.
func Load(ctx context.Context, hostPath, wordPath string) (Inputs, error) {
	var in Inputs
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		hosts, err := LoadHosts(hostPath)
		in.Hosts = hosts
		return err
	})
	g.Go(func() error {
		creds, err := LoadWordlist(wordPath)
		in.Credentials = creds
		return err
	})
	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

// LoadHosts returns one address per non-blank line. Lines starting with '#'
// are comments.
func LoadHosts(path string) ([]string, error) {
	var hosts []string
	err := scanLines(path, func(_ int, line string) error {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return nil
		}
		hosts = append(hosts, line)
		return nil
	})
	return hosts, err
}

// LoadWordlist parses one username:password pair per line. Any line without
// a ':', blank ones included, is a configuration error.
func LoadWordlist(path string) ([]domain.Credential, error) {
	var creds []domain.Credential
	err := scanLines(path, func(n int, line string) error {
		cred, err := ParseCredential(line)
		if err != nil {
			return &ConfigError{Path: path, Line: n, Err: err}
		}
		creds = append(creds, cred)
		return nil
	})
	return creds, err
}

// ParseCredential splits line on its first ':'. The password keeps any
// further ':' characters verbatim.
func ParseCredential(line string) (domain.Credential, error) {
	user, pass, ok := strings.Cut(line, ":")
	if !ok {
		return domain.Credential{}, ErrMalformedCredential
	}
	return domain.Credential{Username: user, Password: pass}, nil
}

func scanLines(path string, fn func(n int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		if err := fn(n, strings.TrimSuffix(sc.Text(), "\r")); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &ConfigError{Path: path, Line: n + 1, Err: fmt.Errorf("read: %w", err)}
	}
	return nil
}
