package services

import (
	"testing"
	"time"

	"minewatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVoiceMessage(voiceID, sender, recipient string) models.VoiceMessage {
	return models.VoiceMessage{
		VoiceID:   voiceID,
		Sender:    sender,
		Recipient: recipient,
		FileURL:   "https://storage.example.com/voices/" + voiceID + ".webm",
		Duration:  4.2,
		Status:    models.VoiceSent,
		Timestamp: time.Now(),
	}
}

func TestAddPrependsMessages(t *testing.T) {
	store := NewVoiceStore(zapNop())

	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))
	store.Add(testVoiceMessage("v2", "HELMET-001", "admin"))

	messages := store.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "v2", messages[0].VoiceID)
	assert.Equal(t, "v1", messages[1].VoiceID)
}

func TestAdvanceStatusForward(t *testing.T) {
	store := NewVoiceStore(zapNop())
	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))

	assert.True(t, store.AdvanceStatus("v1", models.VoiceDelivered))
	assert.True(t, store.AdvanceStatus("v1", models.VoicePlayed))

	messages := store.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.VoicePlayed, messages[0].Status)
}

func TestAdvanceStatusNeverMovesBackward(t *testing.T) {
	store := NewVoiceStore(zapNop())
	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))
	store.AdvanceStatus("v1", models.VoicePlayed)

	assert.False(t, store.AdvanceStatus("v1", models.VoiceDelivered))
	assert.False(t, store.AdvanceStatus("v1", models.VoiceSent))
	assert.Equal(t, models.VoicePlayed, store.Messages()[0].Status)

	// Played messages cannot fail
	assert.False(t, store.AdvanceStatus("v1", models.VoiceFailed))
}

func TestFailedReachableBeforePlayed(t *testing.T) {
	store := NewVoiceStore(zapNop())
	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))

	assert.True(t, store.AdvanceStatus("v1", models.VoiceFailed))
	assert.Equal(t, models.VoiceFailed, store.Messages()[0].Status)

	// Terminal: no way out of failed
	assert.False(t, store.AdvanceStatus("v1", models.VoiceDelivered))
}

func TestAdvanceStatusUnknownVoiceID(t *testing.T) {
	store := NewVoiceStore(zapNop())
	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))

	assert.False(t, store.AdvanceStatus("missing", models.VoiceDelivered))
	// No entry is created for the unknown id
	assert.Len(t, store.Messages(), 1)
}

func TestMessagesFor(t *testing.T) {
	store := NewVoiceStore(zapNop())
	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))
	store.Add(testVoiceMessage("v2", "HELMET-001", "admin"))
	store.Add(testVoiceMessage("v3", "admin", "HELMET-002"))

	messages := store.MessagesFor("HELMET-001")
	require.Len(t, messages, 2)
	assert.Equal(t, "v2", messages[0].VoiceID)
	assert.Equal(t, "v1", messages[1].VoiceID)
}

func TestVoiceClear(t *testing.T) {
	store := NewVoiceStore(zapNop())
	store.Add(testVoiceMessage("v1", "admin", "HELMET-001"))

	store.Clear()
	assert.Empty(t, store.Messages())
}
