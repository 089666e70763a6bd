package services

import (
	"sync"

	"minewatch/models"

	"go.uber.org/zap"
)

// VoiceStore is the ordered queue of inter-party voice messages, newest
// first. Messages are identified and updated by voice id; delivery status
// only ever moves forward.
type VoiceStore struct {
	logger *zap.Logger

	mu       sync.RWMutex
	messages []*models.VoiceMessage
}

func NewVoiceStore(logger *zap.Logger) *VoiceStore {
	return &VoiceStore{logger: logger}
}

// Add prepends a message, created either locally on send or from a
// NEW_VOICE_MESSAGE frame.
func (s *VoiceStore) Add(message models.VoiceMessage) {
	if message.VoiceID == "" {
		s.logger.Warn("Dropping voice message without voice id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := message
	s.messages = append([]*models.VoiceMessage{&stored}, s.messages...)
}

// AdvanceStatus moves the named message's delivery status forward. Updates
// for unknown voice ids or backward transitions leave the queue unchanged.
func (s *VoiceStore) AdvanceStatus(voiceID string, status models.VoiceStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, message := range s.messages {
		if message.VoiceID != voiceID {
			continue
		}
		if !message.Status.CanAdvanceTo(status) {
			s.logger.Debug("Ignoring backward voice status transition",
				zap.String("voice_id", voiceID),
				zap.String("from", string(message.Status)),
				zap.String("to", string(status)))
			return false
		}
		message.Status = status
		return true
	}

	s.logger.Warn("Voice status update for unknown message",
		zap.String("voice_id", voiceID),
		zap.String("status", string(status)))
	return false
}

// MessagesFor returns the messages sent by or addressed to a helmet
func (s *VoiceStore) MessagesFor(helmetID string) []models.VoiceMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VoiceMessage
	for _, message := range s.messages {
		if message.Sender == helmetID || message.Recipient == helmetID {
			out = append(out, *message)
		}
	}
	return out
}

// Messages returns a snapshot of the whole queue, newest first
func (s *VoiceStore) Messages() []models.VoiceMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.VoiceMessage, len(s.messages))
	for i, message := range s.messages {
		out[i] = *message
	}
	return out
}

// Clear empties the queue at session end
func (s *VoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
