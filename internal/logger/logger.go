// Package logger configures logrus and carries request-scoped entries through a context.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger.
func Setup(level string, json bool) {
	configure(logrus.StandardLogger(), os.Stdout, level, json)
}

// New builds a standalone logger, mainly for tests that want to capture output.
func New(out io.Writer, level string, json bool) *logrus.Logger {
	l := logrus.New()
	configure(l, out, level, json)
	return l
}

func configure(l *logrus.Logger, out io.Writer, level string, json bool) {
	l.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying entry.
func NewContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored in ctx, or one from the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
