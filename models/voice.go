package models

import (
	"time"
)

// VoiceStatus is the delivery state of a voice message. It only moves forward
// (sent -> delivered -> played); failed is reachable from sent or delivered.
type VoiceStatus string

const (
	VoiceSent      VoiceStatus = "sent"
	VoiceDelivered VoiceStatus = "delivered"
	VoicePlayed    VoiceStatus = "played"
	VoiceFailed    VoiceStatus = "failed"
)

var voiceStatusRank = map[VoiceStatus]int{
	VoiceSent:      1,
	VoiceDelivered: 2,
	VoicePlayed:    3,
	VoiceFailed:    4,
}

// CanAdvanceTo reports whether a transition from s to next is a legal forward
// move.
func (s VoiceStatus) CanAdvanceTo(next VoiceStatus) bool {
	from, okFrom := voiceStatusRank[s]
	to, okTo := voiceStatusRank[next]
	if !okFrom || !okTo {
		return false
	}
	if next == VoiceFailed {
		return s != VoicePlayed && s != VoiceFailed
	}
	return to > from && s != VoiceFailed
}

// VoiceMessage is one inter-party voice message, identified by VoiceID
type VoiceMessage struct {
	VoiceID   string      `json:"voiceId"`
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient"`
	FileURL   string      `json:"fileUrl"`
	Duration  float64     `json:"duration"` // seconds
	Status    VoiceStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}
