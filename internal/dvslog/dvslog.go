// Package dvslog carries a per-operation structured logger through a
// context.Context, the way the teacher registry threads a *logrus.Entry
// through request handling.
package dvslog

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger   = logrus.NewEntry(logrus.StandardLogger())
	defaultLoggerMu sync.RWMutex
)

type loggerKey struct{}

// WithLogger returns a context carrying logger, overriding any logger
// already attached.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithField returns a context whose logger has key=value added, inheriting
// any logger already on ctx (or the package default).
func WithField(ctx context.Context, key string, value any) context.Context {
	return WithLogger(ctx, From(ctx).WithField(key, value))
}

// From returns the logger attached to ctx, or the package default if none
// is attached.
func From(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return l
	}
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault overrides the package default logger, used once at process
// startup.
func SetDefault(logger *logrus.Entry) {
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
}

// Fieldf is a convenience for WithField(ctx, key, fmt.Sprintf(...)).
func Fieldf(ctx context.Context, key, format string, args ...any) context.Context {
	return WithField(ctx, key, fmt.Sprintf(format, args...))
}
