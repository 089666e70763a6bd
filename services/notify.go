package services

import (
	"time"

	"minewatch/models"

	"go.uber.org/zap"
)

// Notification is a user-facing notification intent produced by the core.
// The core never renders anything itself; sinks consume these.
type Notification struct {
	Message  string
	Severity models.Severity
	Duration time.Duration
}

func NewNotification(message string, severity models.Severity) Notification {
	return Notification{
		Message:  message,
		Severity: severity,
		Duration: severity.DurationHint(),
	}
}

// Notifier is a notification sink as seen from the core
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the structured log. It is the sink of
// last resort and is always installed.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("severity", string(n.Severity)),
		zap.Duration("duration_hint", n.Duration),
	}
	switch n.Severity {
	case models.SeverityCritical:
		l.logger.Error(n.Message, fields...)
	case models.SeverityWarning:
		l.logger.Warn(n.Message, fields...)
	default:
		l.logger.Info(n.Message, fields...)
	}
}

// MultiNotifier fans a notification out to every configured sink
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n Notification) {
	for _, sink := range m {
		sink.Notify(n)
	}
}
