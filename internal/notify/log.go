package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send never fails.
func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.log.InfoContext(ctx, "Notification", "to", to, "subject", subject, "body", body)
	return nil
}
