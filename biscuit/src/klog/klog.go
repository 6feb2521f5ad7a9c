// Package klog is the kernel's structured logger: a single
// logrus.Logger writing to the UART console during early boot, the
// way machine_linux.go wires log "github.com/sirupsen/logrus" as its
// host-side logger for firecracker VM lifecycle events.
package klog

import (
	"io"

	"github.com/sirupsen/logrus"
)

var logger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   false,
		TimestampFormat: "000000", // jiffies-like counter, not wall clock
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetOutput redirects log output, used at boot once the UART driver
// is initialized to replace the default stderr sink.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// SetLevel parses level ("debug", "info", "warn", "error") and
// applies it, falling back to InfoLevel on an unrecognized string.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}

// WithTask returns an entry pre-populated with pid, the way per-task
// kernel messages are tagged so a multi-task boot log stays readable.
func WithTask(pid int) *logrus.Entry {
	return logger.WithField("pid", pid)
}

func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { logger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { logger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }

// Panicf logs at panic level and then panics, matching the kernel's
// convention that an unrecoverable condition both leaves a log record
// and halts execution via Go's own panic/recover machinery.
func Panicf(format string, args ...interface{}) { logger.Panicf(format, args...) }
