// Package config holds the settings of a single run.
package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingHostlist = errors.New("hostlist is required")
	ErrMissingWordlist = errors.New("wordlist is required")
	ErrInvalidTimeout  = errors.New("timeout must not be negative")
)

const (
	DefaultProtocol = "ssh"
	DefaultTimeout  = 10 * time.Second
	DefaultStrategy = "credential"

	DefaultPrecheckTimeout = 5 * time.Minute
)

// Config is populated from an optional YAML profile and then from the
// command line, which always wins.
type Config struct {
	Hostlist string `yaml:"hostlist"`
	Wordlist string `yaml:"wordlist"`

	// Threads is kept raw; the pool decides how to interpret it.
	Threads string `yaml:"threads,omitempty"`
	Verbose int    `yaml:"verbose,omitempty"`

	Protocol string        `yaml:"protocol,omitempty"`
	Port     uint16        `yaml:"port,omitempty"` // 0 selects the protocol default
	Timeout  time.Duration `yaml:"timeout,omitempty"`

	KeepDuplicates bool   `yaml:"keep_duplicates,omitempty"`
	Strategy       string `yaml:"strategy,omitempty"`
	Precheck       bool   `yaml:"precheck,omitempty"`
	// PrecheckTimeout bounds the whole nmap scan, not a single host.
	PrecheckTimeout time.Duration `yaml:"precheck_timeout,omitempty"`

	LogFile string `yaml:"log_file,omitempty"`
}

func Default() Config {
	return Config{
		Protocol: DefaultProtocol,
		Timeout:  DefaultTimeout,
		Strategy: DefaultStrategy,

		PrecheckTimeout: DefaultPrecheckTimeout,
	}
}

// Validate checks the fields every run needs.
func (c Config) Validate() error {
	if c.Hostlist == "" {
		return ErrMissingHostlist
	}
	if c.Wordlist == "" {
		return ErrMissingWordlist
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	if c.PrecheckTimeout < 0 {
		return fmt.Errorf("%w: precheck %s", ErrInvalidTimeout, c.PrecheckTimeout)
	}
	return nil
}
