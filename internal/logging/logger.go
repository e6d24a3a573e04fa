package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"flipnote.app/cli/internal/config"
)

// New creates the root logger. Logs go to stderr so command output on
// stdout stays machine readable.
func New(cfg config.LogConfig, debug bool) hclog.Logger {
	return NewWithOutput(cfg, debug, os.Stderr)
}

// NewWithOutput creates the root logger writing to out
func NewWithOutput(cfg config.LogConfig, debug bool, out io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	if debug {
		level = hclog.Debug
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "fq",
		Level:      level,
		Output:     out,
		JSONFormat: cfg.JSON,
	})
}
