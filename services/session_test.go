package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionWiresStores(t *testing.T) {
	session := NewSession(testConfig(), zapNop(), &captureNotifier{})

	require.NotNil(t, session.Helmets)
	require.NotNil(t, session.Alerts)
	require.NotNil(t, session.Voice)
	require.NotNil(t, session.Conn)

	assert.Empty(t, session.Helmets.Helmets())
	assert.Empty(t, session.Alerts.Alerts())
	assert.Empty(t, session.Voice.Messages())
}

func TestEndClearsEveryStore(t *testing.T) {
	session := NewSession(testConfig(), zapNop(), &captureNotifier{})

	session.Helmets.ApplyTelemetry(telemetry("HELMET-001", nil))
	session.Alerts.Add(testAlert("HELMET-001"))
	session.Voice.Add(testVoiceMessage("v1", "admin", "HELMET-001"))

	session.End()

	assert.Empty(t, session.Helmets.Helmets())
	assert.Empty(t, session.Alerts.Alerts())
	assert.Empty(t, session.Voice.Messages())

	// A second End is harmless
	session.End()
}
