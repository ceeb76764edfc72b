package cliconfig

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/cpro-iot/scaleship/pkg/log"
)

var logOutput io.Writer = os.Stderr

// Logger returns the startup logger, used before the configured level is known.
func Logger() zerolog.Logger {
	return log.NewConsoleLogger(logOutput, zerolog.InfoLevel)
}

// NewLogger returns the process logger at the configured level.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	return log.NewConsoleLogger(logOutput, lvl), nil
}
