package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger builds a slog logger backed by charmbracelet/log.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	formatter, err := parseLogFormatter(format)
	if err != nil {
		return nil, err
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:     lvl,
		Formatter: formatter,
		Prefix:    "giskard",
	})
	return slog.New(handler), nil
}

// parseLogFormatter parses a formatter name to a charmbracelet/log Formatter.
func parseLogFormatter(format string) (log.Formatter, error) {
	switch format {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("invalid log format %q: use text, json or logfmt", format)
	}
}
