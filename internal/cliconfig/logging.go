package cliconfig

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/queueship/pkg/log"
)

// ParseLevel parses a zerolog level name such as "debug" or "warn".
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Logger returns the console logger used by the CLI.
// Unknown levels fall back to info.
func Logger(level string) zerolog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = zerolog.InfoLevel
	}
	return log.NewConsoleLogger(os.Stderr, l)
}
