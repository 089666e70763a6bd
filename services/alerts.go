package services

import (
	"fmt"
	"time"

	"minewatch/config"
	"minewatch/models"
)

// AlertEngine evaluates one telemetry payload against the configured
// thresholds. Rules are independent and non-exclusive: a single payload may
// produce several alerts, and evaluation order never changes the result set.
// The engine does not deduplicate against earlier alerts; suppression is a
// notification-sink concern.
type AlertEngine struct {
	config *config.Config
}

func NewAlertEngine(cfg *config.Config) *AlertEngine {
	return &AlertEngine{
		config: cfg,
	}
}

// Evaluate derives zero or more alerts from a telemetry payload. Returned
// alerts carry no ID; the alert store assigns one on append.
func (e *AlertEngine) Evaluate(data *models.TelemetryPayload) []*models.Alert {
	var alerts []*models.Alert

	ts := time.Now()
	if data.Timestamp > 0 {
		ts = time.UnixMilli(data.Timestamp)
	}
	sensors := data.Sensors

	if sensors.GasLevel > e.config.GasMax {
		alerts = append(alerts, &models.Alert{
			Type:      models.AlertGasHigh,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("High gas level detected: %.0f ppm", sensors.GasLevel),
			HelmetID:  data.HelmetID,
			Value:     sensors.GasLevel,
			Timestamp: ts,
		})
	}

	if sensors.HeartRate > e.config.HeartRateMax {
		alerts = append(alerts, &models.Alert{
			Type:      models.AlertHeartRateHigh,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("High heart rate: %.0f BPM", sensors.HeartRate),
			HelmetID:  data.HelmetID,
			Value:     sensors.HeartRate,
			Timestamp: ts,
		})
	} else if sensors.HeartRate < e.config.HeartRateMin && sensors.HeartRate > 0 {
		// A reading of exactly 0 means "no sensor reading", not a low pulse
		alerts = append(alerts, &models.Alert{
			Type:      models.AlertHeartRateLow,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("Low heart rate: %.0f BPM", sensors.HeartRate),
			HelmetID:  data.HelmetID,
			Value:     sensors.HeartRate,
			Timestamp: ts,
		})
	}

	if data.Battery.Percentage < e.config.BatteryLow {
		severity := models.SeverityWarning
		if data.Battery.Percentage < e.config.BatteryCritical {
			severity = models.SeverityCritical
		}
		alerts = append(alerts, &models.Alert{
			Type:      models.AlertBatteryLow,
			Severity:  severity,
			Message:   fmt.Sprintf("Low battery: %.0f%%", data.Battery.Percentage),
			HelmetID:  data.HelmetID,
			Value:     data.Battery.Percentage,
			Timestamp: ts,
		})
	}

	if sensors.Temperature > e.config.TemperatureMax {
		alerts = append(alerts, &models.Alert{
			Type:      models.AlertTempHigh,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("High temperature: %.1f°C", sensors.Temperature),
			HelmetID:  data.HelmetID,
			Value:     sensors.Temperature,
			Timestamp: ts,
		})
	}

	if sensors.Oxygen < e.config.OxygenMin {
		alerts = append(alerts, &models.Alert{
			Type:      models.AlertOxygenLow,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Low oxygen level: %.1f%%", sensors.Oxygen),
			HelmetID:  data.HelmetID,
			Value:     sensors.Oxygen,
			Timestamp: ts,
		})
	}

	return alerts
}
