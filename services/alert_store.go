package services

import (
	"sync"
	"time"

	"minewatch/models"

	"go.uber.org/zap"
)

// AlertStore is the ordered alert log, newest first. Alerts are append-biased:
// nothing mutates after creation except the acknowledgement fields, and
// nothing is removed except by age-based retention or an explicit clear.
type AlertStore struct {
	logger    *zap.Logger
	retention time.Duration

	mu     sync.RWMutex
	alerts []*models.Alert
	unread int
	nextID int64
}

// NewAlertStore creates an empty alert log. A retention of zero disables
// pruning.
func NewAlertStore(logger *zap.Logger, retention time.Duration) *AlertStore {
	return &AlertStore{
		logger:    logger,
		retention: retention,
	}
}

// Add appends an alert, assigning the next monotonic local id. The stored
// copy is returned.
func (s *AlertStore) Add(alert *models.Alert) models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *alert
	stored.ID = s.nextID
	stored.Acknowledged = false
	stored.AcknowledgedAt = time.Time{}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}

	s.alerts = append([]*models.Alert{&stored}, s.alerts...)
	s.unread++
	s.pruneLocked(time.Now())

	s.logger.Debug("Alert appended",
		zap.Int64("alert_id", stored.ID),
		zap.String("type", string(stored.Type)),
		zap.String("severity", string(stored.Severity)),
		zap.String("helmet_id", stored.HelmetID))

	return stored
}

// Acknowledge marks one alert acknowledged. Acknowledging an unknown or
// already-acknowledged alert changes nothing.
func (s *AlertStore) Acknowledge(alertID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alert := range s.alerts {
		if alert.ID != alertID {
			continue
		}
		if alert.Acknowledged {
			return false
		}
		alert.Acknowledged = true
		alert.AcknowledgedAt = time.Now()
		if s.unread > 0 {
			s.unread--
		}
		return true
	}
	return false
}

// AcknowledgeAll marks every alert acknowledged and drives the unread count
// to zero. Calling it again is a no-op.
func (s *AlertStore) AcknowledgeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, alert := range s.alerts {
		if !alert.Acknowledged {
			alert.Acknowledged = true
			alert.AcknowledgedAt = now
		}
	}
	s.unread = 0
}

// Alerts returns a snapshot of the log, newest first
func (s *AlertStore) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, len(s.alerts))
	for i, alert := range s.alerts {
		out[i] = *alert
	}
	return out
}

// Unacknowledged returns the alerts not yet acknowledged, newest first
func (s *AlertStore) Unacknowledged() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Alert
	for _, alert := range s.alerts {
		if !alert.Acknowledged {
			out = append(out, *alert)
		}
	}
	return out
}

func (s *AlertStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// ClearOld drops alerts older than the given age on explicit operator action
func (s *AlertStore) ClearOld(olderThan time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropBeforeLocked(time.Now().Add(-olderThan))
}

// Clear empties the log at session end
func (s *AlertStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = nil
	s.unread = 0
}

// pruneLocked enforces the retention window. An unattended long-running
// session must not grow memory without bound. Callers hold s.mu.
func (s *AlertStore) pruneLocked(now time.Time) {
	if s.retention <= 0 {
		return
	}
	s.dropBeforeLocked(now.Add(-s.retention))
}

func (s *AlertStore) dropBeforeLocked(cutoff time.Time) {
	kept := s.alerts[:0]
	dropped := 0
	for _, alert := range s.alerts {
		if alert.Timestamp.After(cutoff) {
			kept = append(kept, alert)
			continue
		}
		if !alert.Acknowledged && s.unread > 0 {
			s.unread--
		}
		dropped++
	}
	s.alerts = kept
	if dropped > 0 {
		s.logger.Debug("Pruned expired alerts", zap.Int("count", dropped))
	}
}
