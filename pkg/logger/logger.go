// Package logger holds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the global logger. It is usable before Init is called so that
// packages and tests can log without any setup.
var Log = logrus.New()

// Init configures the global logger. Empty arguments fall back to the
// LOG_LEVEL and LOG_FORMAT environment variables, then to "info" and "text".
func Init(level, format string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	SetLevel(level)

	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	Log.SetOutput(os.Stdout)
}

// SetLevel changes the level at runtime. Unknown names select info.
func SetLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
}

// Discard silences the logger. Used by tests.
func Discard() {
	Log.SetOutput(io.Discard)
}
