package services

import (
	"testing"
	"time"

	"minewatch/config"
	"minewatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger {
	return zap.NewNop()
}

func testConfig() *config.Config {
	return &config.Config{
		ServerWSURL:          "ws://localhost:5000/ws",
		GasMax:               500,
		HeartRateMax:         120,
		HeartRateMin:         50,
		BatteryLow:           20,
		BatteryCritical:      10,
		TemperatureMax:       35,
		OxygenMin:            19.5,
		ReconnectDelay:       time.Millisecond,
		ReconnectDelayMax:    5 * time.Millisecond,
		ReconnectMaxAttempts: 5,
		AlertRetention:       24 * time.Hour,
	}
}

// telemetry builds a payload with every reading inside thresholds; mutate
// pushes individual readings out of range.
func telemetry(helmetID string, mutate func(*models.TelemetryPayload)) *models.TelemetryPayload {
	p := &models.TelemetryPayload{
		HelmetID: helmetID,
		Sensors: models.SensorSnapshot{
			Temperature: 25,
			Humidity:    50,
			GasLevel:    200,
			HeartRate:   75,
			Oxygen:      20.9,
		},
		Battery: models.Battery{Percentage: 80},
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestEvaluateNominalReadings(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", nil))
	assert.Empty(t, alerts)
}

func TestEvaluateGasLevel(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.GasLevel = 600
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGasHigh, alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, 600.0, alerts[0].Value)
	assert.Equal(t, "HELMET-001", alerts[0].HelmetID)

	// Below and exactly at the threshold produce nothing
	assert.Empty(t, engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.GasLevel = 499
	})))
	assert.Empty(t, engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.GasLevel = 500
	})))
}

func TestEvaluateHeartRate(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.HeartRate = 130
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertHeartRateHigh, alerts[0].Type)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	alerts = engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.HeartRate = 40
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertHeartRateLow, alerts[0].Type)
}

func TestEvaluateHeartRateZeroMeansNoReading(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.HeartRate = 0
	}))
	assert.Empty(t, alerts)
}

func TestEvaluateBatteryTiers(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Battery.Percentage = 15
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertBatteryLow, alerts[0].Type)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	alerts = engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Battery.Percentage = 5
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestEvaluateTemperatureAndOxygen(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.Temperature = 38
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTempHigh, alerts[0].Type)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	alerts = engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.Oxygen = 18.9
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertOxygenLow, alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestEvaluateRulesAreIndependent(t *testing.T) {
	engine := NewAlertEngine(testConfig())

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.GasLevel = 600
		p.Battery.Percentage = 5
	}))
	require.Len(t, alerts, 2)

	types := map[models.AlertType]models.Severity{}
	for _, alert := range alerts {
		types[alert.Type] = alert.Severity
	}
	assert.Equal(t, models.SeverityCritical, types[models.AlertGasHigh])
	assert.Equal(t, models.SeverityCritical, types[models.AlertBatteryLow])
}

func TestEvaluateThresholdsAreConfigurable(t *testing.T) {
	cfg := testConfig()
	cfg.GasMax = 300
	engine := NewAlertEngine(cfg)

	alerts := engine.Evaluate(telemetry("HELMET-001", func(p *models.TelemetryPayload) {
		p.Sensors.GasLevel = 400
	}))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGasHigh, alerts[0].Type)
}
