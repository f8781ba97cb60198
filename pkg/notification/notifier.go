package notification

import (
	"context"
	"log/slog"
)

// Notifier delivers registry events to an external system
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes every event to the structured log
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.logger.InfoContext(ctx, "Delegation event", "event", event)
	return nil
}
