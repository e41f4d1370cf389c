// Package log is the operational logger. It wraps logrus behind a small
// interface so call sites do not import logrus directly.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"firestige.xyz/pktpeek/internal/config"
)

type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
}

const (
	defaultPattern = "%time [%level] %field %msg"
	defaultTime    = "2006-01-02 15:04:05.000"
)

var (
	mu     sync.RWMutex
	logger Logger = newDefault(os.Stderr)
	output *MultiWriter
)

// GetLogger returns the process logger. Before Init it writes to stderr at
// info level.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg. Output always goes to
// stderr, since stdout may carry decoded packets, plus an optional rotated
// file.
func Init(cfg config.LogConfig) error {
	out := NewMultiWriter().Add(os.Stderr)
	if cfg.Outputs.File.Enabled {
		out.AddFileAppender(FileAppenderOpt{
			Filename:   cfg.Outputs.File.Path,
			MaxSize:    cfg.Outputs.File.Rotation.MaxSizeMB,
			MaxBackups: cfg.Outputs.File.Rotation.MaxBackups,
			MaxAge:     cfg.Outputs.File.Rotation.MaxAgeDays,
			Compress:   cfg.Outputs.File.Rotation.Compress,
		})
	}

	l, err := build(cfg, out)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := output
	logger, output = l, out
	mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Close releases file appenders opened by Init and reverts to the default
// stderr logger.
func Close() error {
	mu.Lock()
	prev := output
	logger, output = newDefault(os.Stderr), nil
	mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

func newDefault(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&formatter{pattern: defaultPattern, time: defaultTime})
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}
