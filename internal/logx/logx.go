package logx

import (
	"context"

	"github.com/google/uuid"
	"pkt.systems/pslog"
)

// Or returns log, or the context-free default logger when log is nil.
func Or(log pslog.Logger) pslog.Logger {
	if log == nil {
		return pslog.Ctx(context.Background())
	}
	return log
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, id uuid.UUID) pslog.Logger {
	if id != uuid.Nil {
		log = log.With("session", id.String())
	}
	return log
}

// WithPath annotates the logger with a file path when available.
func WithPath(log pslog.Logger, path string) pslog.Logger {
	if path != "" {
		log = log.With("path", path)
	}
	return log
}
