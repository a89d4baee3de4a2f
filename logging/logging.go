// Package logging constructs the process logger from config.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"taskvault/config"
)

// New builds a logger writing to stderr per cfg.
func New(cfg config.LogConfig) *log.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter builds a logger writing to w per cfg. Unknown levels fall
// back to info.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *log.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: cfg.Timestamps,
	})
	if cfg.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
