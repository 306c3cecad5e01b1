package main

import (
	"fmt"

	"edgy/internal/config"
	"edgy/internal/logging"
)

// newLogger builds the process logger from the logging section. A detached
// daemon has no terminal, so console output is redirected to the log file.
func newLogger(c config.LoggingConfig, detached bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = logging.LevelDebug
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = c.Output
	lc.FilePath = c.FilePath
	lc.MaxSize = int64(c.MaxSizeMB)
	lc.MaxBackups = c.MaxBackups
	if detached && (c.Output == "stdout" || c.Output == "stderr" || c.Output == "both") {
		lc.Output = "file"
	}

	l, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return l, nil
}
