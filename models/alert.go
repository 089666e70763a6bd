package models

import (
	"time"
)

// AlertType identifies the condition that produced an alert
type AlertType string

const (
	AlertGasHigh       AlertType = "GAS_HIGH"
	AlertHeartRateHigh AlertType = "HEART_RATE_HIGH"
	AlertHeartRateLow  AlertType = "HEART_RATE_LOW"
	AlertBatteryLow    AlertType = "BATTERY_LOW"
	AlertTempHigh      AlertType = "TEMPERATURE_HIGH"
	AlertOxygenLow     AlertType = "OXYGEN_LOW"
)

// Severity tiers an alert or notification for display
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// DurationHint returns how long a notification of this severity should stay
// on screen.
func (s Severity) DurationHint() time.Duration {
	switch s {
	case SeverityCritical:
		return 10 * time.Second
	case SeverityWarning:
		return 5 * time.Second
	default:
		return 3 * time.Second
	}
}

// Alert is a derived or server-pushed record signaling an out-of-threshold or
// externally flagged condition. Only the acknowledgement fields mutate after
// creation.
type Alert struct {
	ID             int64     `json:"id"`
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	HelmetID       string    `json:"helmetId"`
	Value          float64   `json:"value,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedAt time.Time `json:"acknowledgedAt,omitempty"`
}
