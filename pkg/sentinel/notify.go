package sentinel

import (
	"context"
	"log/slog"
)

// Notifier delivers alert text to a channel. The hosting collaborator
// supplies the real transport; the core only needs this capability plus
// a log fallback.
type Notifier interface {
	// Deliver sends the alert to the named channel. An empty channel
	// means the implementation's default destination.
	Deliver(ctx context.Context, channel string, alert Alert) error
}

// LogNotifier is the fallback Notifier: it writes alerts to the
// structured log instead of an external channel.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "sentinel.notify")}
}

// Deliver logs the alert at warn level.
func (n *LogNotifier) Deliver(_ context.Context, channel string, alert Alert) error {
	n.logger.Warn("[CostGuard Sentinel] "+alert.Detector+": "+alert.Message,
		"alert_id", alert.ID,
		"severity", string(alert.Severity),
		"session_key", alert.SessionKey,
		"action", string(alert.Action),
		"channel", channel,
	)
	return nil
}
