package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LevelForVerbosity maps the repeatable --verbose counter to a log level.
// One -v only unlocks FAILED report lines; a second one turns on debug logs.
func LevelForVerbosity(verbosity int) logrus.Level {
	if verbosity > 1 {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// SetLoggerToStructured switches the standard logger to JSON on stderr,
// mirrored into filePath when one is given. The returned closer releases the
// log file and is never nil.
func SetLoggerToStructured(level logrus.Level, filePath string) io.Closer {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(level)

	if filePath == "" {
		logrus.SetOutput(os.Stderr)
		return nopCloser{}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logrus.SetOutput(os.Stderr)
		logrus.WithError(err).Error("Could not create file for logging")
		return nopCloser{}
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, file))
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
