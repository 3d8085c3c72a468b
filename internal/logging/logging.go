// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package logging provides the structured logger used by
// the build driver.
//
// The logger is configured with environment variables:
//
//	X86FMT_LOG_LEVEL:   debug, info, warn, or error (default: info)
//	X86FMT_LOG_PREFIX:  prefix for log messages (default: "x86fmt")
//	X86FMT_LOG_TO_FILE: when set to "1", log to a timestamped file
//	                    instead of stderr
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const (
	envLevel  = "X86FMT_LOG_LEVEL"
	envPrefix = "X86FMT_LOG_PREFIX"
	envToFile = "X86FMT_LOG_TO_FILE"
)

// Logger wraps a logger with the writer it
// owns, if any.
type Logger struct {
	*log.Logger
	closer io.Closer
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}

	return nil
}

// ParseLevel returns the level with the given
// name. The empty string means info.
func ParseLevel(name string) (log.Level, error) {
	switch name {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}

	return log.InfoLevel, fmt.Errorf("invalid log level %q", name)
}

// NewWithWriter returns a logger that writes to w.
// An unrecognised level in the environment is
// treated as info.
func NewWithWriter(w io.Writer) *Logger {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	level, _ := ParseLevel(os.Getenv(envLevel))
	lg.SetLevel(level)

	prefix := os.Getenv(envPrefix)
	if prefix == "" {
		prefix = "x86fmt"
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &Logger{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// New returns a logger configured from the
// environment.
func New() (*Logger, error) {
	if os.Getenv(envToFile) != "1" {
		return NewWithWriter(os.Stderr), nil
	}

	f, err := openLogFile(".", time.Now())
	if err != nil {
		return nil, err
	}

	return NewWithWriter(f), nil
}

// openLogFile opens the timestamped log file
// for t in dir.
func openLogFile(dir string, t time.Time) (*os.File, error) {
	name := filepath.Join(dir, fmt.Sprintf("x86fmt-%s.log", t.Format("20060102-150405")))
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	return f, nil
}
