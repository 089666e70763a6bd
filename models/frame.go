package models

import (
	"encoding/json"
)

// Frame is one discrete message exchanged over the persistent connection,
// tagged with a type. Payload stays raw until the router dispatches on Type.
type Frame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"` // unix millis
}

// Inbound frame types (server -> client)
const (
	FrameHelmetData      = "HELMET_DATA"
	FrameHelmetStatus    = "HELMET_STATUS"
	FrameActiveHelmets   = "ACTIVE_HELMETS"
	FrameNewVoiceMessage = "NEW_VOICE_MESSAGE"
	FrameVoiceStatus     = "VOICE_STATUS"
	FrameAlert           = "ALERT"
	FrameSystemMessage   = "SYSTEM_MESSAGE"
)

// Outbound frame types (client -> server)
const (
	FrameSendVoice     = "SEND_VOICE"
	FrameSendCommand   = "SEND_COMMAND"
	FrameRequestUpdate = "REQUEST_UPDATE"
)

// TelemetryPayload is the body of a HELMET_DATA frame
type TelemetryPayload struct {
	HelmetID  string         `json:"helmetId"`
	Sensors   SensorSnapshot `json:"sensors"`
	Battery   Battery        `json:"battery"`
	GPS       *GeoPoint      `json:"gps,omitempty"`
	Cracks    []CrackEvent   `json:"cracks,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// StatusPayload is the body of a HELMET_STATUS frame
type StatusPayload struct {
	HelmetID  string       `json:"helmetId"`
	Status    HelmetStatus `json:"status"`
	Timestamp int64        `json:"timestamp"`
}

// NewVoicePayload is the body of a NEW_VOICE_MESSAGE frame
type NewVoicePayload struct {
	VoiceID   string  `json:"voiceId"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	FileURL   string  `json:"fileUrl"`
	Duration  float64 `json:"duration"`
	Timestamp int64   `json:"timestamp"`
}

// VoiceStatusPayload is the body of a VOICE_STATUS frame
type VoiceStatusPayload struct {
	VoiceID string      `json:"voiceId"`
	Status  VoiceStatus `json:"status"`
}

// AlertPayload is the body of a server-originated ALERT frame
type AlertPayload struct {
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	HelmetID  string    `json:"helmetId"`
	Value     float64   `json:"value,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

// SystemMessagePayload is the body of a SYSTEM_MESSAGE frame
type SystemMessagePayload struct {
	Text string `json:"text"`
	Icon string `json:"icon,omitempty"`
}

// SendVoicePayload is the body of an outbound SEND_VOICE frame
type SendVoicePayload struct {
	HelmetID  string  `json:"helmetId"`
	FileURL   string  `json:"fileUrl"`
	Duration  float64 `json:"duration"`
	Sender    string  `json:"sender"`
	Timestamp int64   `json:"timestamp"`
}

// SendCommandPayload is the body of an outbound SEND_COMMAND frame
type SendCommandPayload struct {
	HelmetID  string                 `json:"helmetId"`
	Command   string                 `json:"command"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// RequestUpdatePayload is the body of an outbound REQUEST_UPDATE frame
type RequestUpdatePayload struct {
	HelmetID string `json:"helmetId"`
}
