package notify

import (
	"context"
	"log/slog"
)

// Log writes announcements to the logger. Used when no webhook is configured.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, text string) error {
	l.log.Info("Announcement", "text", text)
	return nil
}
