package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bytemomo/moray/internal/config"
	"bytemomo/moray/internal/precheck"

	"github.com/sirupsen/logrus"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{"--hostlist", "h.txt", "--wordlist", "w.txt"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}
	cfg := opts.flags
	if cfg.Protocol != "ssh" || cfg.Timeout != 10*time.Second || cfg.Strategy != "credential" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Verbose != 0 || cfg.Port != 0 || cfg.Threads != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseFlagsVerboseCounts(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{nil, 0},
		{[]string{"-v"}, 1},
		{[]string{"-v", "-v"}, 2},
		{[]string{"--verbose", "-v"}, 2},
		{[]string{"--verbose=3"}, 3},
	}
	for _, tt := range tests {
		opts, err := parseFlags(tt.args, io.Discard)
		if err != nil {
			t.Fatalf("parseFlags(%v) returned error: %v", tt.args, err)
		}
		if opts.flags.Verbose != tt.want {
			t.Errorf("parseFlags(%v) verbose = %d, want %d", tt.args, opts.flags.Verbose, tt.want)
		}
	}
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"--port", "70000"},
		{"--timeout", "soon"},
		{"stray"},
	} {
		if _, err := parseFlags(args, io.Discard); err == nil {
			t.Errorf("parseFlags(%v) should fail", args)
		}
	}
}

func TestBuildConfigWithoutProfile(t *testing.T) {
	opts, err := parseFlags([]string{"--wordlist", "w.txt"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildConfig(opts); !errors.Is(err, config.ErrMissingHostlist) {
		t.Errorf("expected ErrMissingHostlist, got %v", err)
	}
}

func TestBuildConfigFlagsOverrideProfile(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "run.yaml")
	data := "hostlist: hosts.txt\nwordlist: words.txt\nthreads: \"8\"\nprotocol: telnet\ntimeout: 3s\nverbose: 1\n"
	if err := os.WriteFile(profile, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := parseFlags([]string{"--config", profile, "--threads", "2", "-v", "-v"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := buildConfig(opts)
	if err != nil {
		t.Fatalf("buildConfig returned error: %v", err)
	}

	if cfg.Threads != "2" {
		t.Errorf("threads = %q, want flag value", cfg.Threads)
	}
	if cfg.Verbose != 2 {
		t.Errorf("verbose = %d, want 2", cfg.Verbose)
	}
	if cfg.Protocol != "telnet" || cfg.Timeout != 3*time.Second {
		t.Errorf("profile values lost: %+v", cfg)
	}
	// Unset flags must not clobber the profile with their defaults.
	if cfg.Strategy != config.DefaultStrategy {
		t.Errorf("strategy = %q", cfg.Strategy)
	}
	if cfg.Hostlist != filepath.Join(dir, "hosts.txt") {
		t.Errorf("hostlist = %q, want resolved against profile dir", cfg.Hostlist)
	}
}

func TestBuildConfigMissingProfile(t *testing.T) {
	opts, err := parseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildConfig(opts); err == nil {
		t.Error("expected an error for a missing profile")
	}
}

func TestNewRunnerBoundsPrecheck(t *testing.T) {
	opts, err := parseFlags([]string{
		"--hostlist", "h.txt", "--wordlist", "w.txt",
		"--protocol", "mqtt", "--precheck", "--precheck-timeout", "90s",
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := buildConfig(opts)
	if err != nil {
		t.Fatal(err)
	}

	r, err := newRunner(cfg, logrus.NewEntry(logrus.New()))
	if err != nil {
		t.Fatalf("newRunner returned error: %v", err)
	}
	f, ok := r.Precheck.(*precheck.NmapFilter)
	if !ok {
		t.Fatalf("expected *precheck.NmapFilter, got %T", r.Precheck)
	}
	if f.Timeout != 90*time.Second {
		t.Errorf("precheck timeout = %s, want 90s", f.Timeout)
	}
	if f.Port != 1883 {
		t.Errorf("precheck port = %d, want 1883", f.Port)
	}
}

func TestNewRunnerPrecheckDefaultTimeout(t *testing.T) {
	opts, err := parseFlags([]string{"--hostlist", "h.txt", "--wordlist", "w.txt", "--precheck"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	r, err := newRunner(opts.flags, logrus.NewEntry(logrus.New()))
	if err != nil {
		t.Fatal(err)
	}
	f := r.Precheck.(*precheck.NmapFilter)
	if f.Timeout != config.DefaultPrecheckTimeout {
		t.Errorf("precheck timeout = %s, want %s", f.Timeout, config.DefaultPrecheckTimeout)
	}
}

func TestNewRunnerWithoutPrecheck(t *testing.T) {
	r, err := newRunner(config.Default(), logrus.NewEntry(logrus.New()))
	if err != nil {
		t.Fatal(err)
	}
	if r.Precheck != nil {
		t.Errorf("expected no precheck, got %T", r.Precheck)
	}
}
