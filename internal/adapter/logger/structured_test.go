package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := map[int]logrus.Level{
		0: logrus.InfoLevel,
		1: logrus.InfoLevel,
		2: logrus.DebugLevel,
		5: logrus.DebugLevel,
	}
	for v, want := range tests {
		if got := LevelForVerbosity(v); got != want {
			t.Errorf("LevelForVerbosity(%d) = %s, want %s", v, got, want)
		}
	}
}

func TestSetLoggerToStructuredWritesFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	path := filepath.Join(t.TempDir(), "moray.log")
	closer := SetLoggerToStructured(logrus.InfoLevel, path)
	logrus.WithField("probe", "ssh").Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"probe":"ssh"`) {
		t.Errorf("expected JSON entry in log file, got %q", data)
	}
}

func TestSetLoggerToStructuredWithoutFile(t *testing.T) {
	defer logrus.SetFormatter(&logrus.TextFormatter{})
	defer logrus.SetLevel(logrus.InfoLevel)

	closer := SetLoggerToStructured(logrus.DebugLevel, "")
	if closer == nil {
		t.Fatal("closer must never be nil")
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", logrus.GetLevel())
	}
	_ = closer.Close()
}
