package services

import (
	"encoding/json"
	"fmt"
	"time"

	"minewatch/models"

	"go.uber.org/zap"
)

// EventRouter decodes each inbound frame and dispatches it by type,
// decoupling transport framing from store semantics. Dispatch is synchronous:
// a frame is fully applied to its target stores before the next one is
// processed. The router mutates stores but never renders; notification
// intents are returned for a sink to consume.
type EventRouter struct {
	logger  *zap.Logger
	helmets *HelmetStore
	alerts  *AlertStore
	voice   *VoiceStore
	engine  *AlertEngine
}

func NewEventRouter(logger *zap.Logger, helmets *HelmetStore, alerts *AlertStore, voice *VoiceStore, engine *AlertEngine) *EventRouter {
	return &EventRouter{
		logger:  logger,
		helmets: helmets,
		alerts:  alerts,
		voice:   voice,
		engine:  engine,
	}
}

// HandleFrame applies one inbound frame and returns the notification intents
// it produced. Malformed frames are dropped with a warning; unknown types are
// ignored. No failure here may escape the event loop.
func (r *EventRouter) HandleFrame(frame *models.Frame) []Notification {
	switch frame.Type {
	case models.FrameHelmetData:
		return r.handleTelemetry(frame)
	case models.FrameHelmetStatus:
		return r.handleStatus(frame)
	case models.FrameActiveHelmets:
		return r.handleActiveHelmets(frame)
	case models.FrameNewVoiceMessage:
		return r.handleNewVoice(frame)
	case models.FrameVoiceStatus:
		return r.handleVoiceStatus(frame)
	case models.FrameAlert:
		return r.handleAlert(frame)
	case models.FrameSystemMessage:
		return r.handleSystemMessage(frame)
	default:
		r.logger.Warn("Ignoring unknown frame type", zap.String("type", frame.Type))
		return nil
	}
}

func (r *EventRouter) handleTelemetry(frame *models.Frame) []Notification {
	var data models.TelemetryPayload
	if !r.decode(frame, &data) {
		return nil
	}
	if data.HelmetID == "" {
		r.logger.Warn("Dropping telemetry frame without helmet id")
		return nil
	}

	r.helmets.ApplyTelemetry(&data)

	// Derived alerts land in the log before the next frame is processed.
	// They do not notify; only server-pushed alerts do.
	for _, alert := range r.deriveAlerts(&data) {
		r.alerts.Add(alert)
	}
	return nil
}

// deriveAlerts contains derivation so that a failure for one payload cannot
// stop subsequent frames from being processed.
func (r *EventRouter) deriveAlerts(data *models.TelemetryPayload) (alerts []*models.Alert) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Alert derivation panicked",
				zap.String("helmet_id", data.HelmetID),
				zap.Any("panic", rec))
			alerts = nil
		}
	}()
	return r.engine.Evaluate(data)
}

func (r *EventRouter) handleStatus(frame *models.Frame) []Notification {
	var data models.StatusPayload
	if !r.decode(frame, &data) {
		return nil
	}
	if data.HelmetID == "" {
		r.logger.Warn("Dropping status frame without helmet id")
		return nil
	}

	var lastSeen time.Time
	if data.Timestamp > 0 {
		lastSeen = time.UnixMilli(data.Timestamp)
	}
	r.helmets.SetStatus(data.HelmetID, data.Status, lastSeen)
	return nil
}

func (r *EventRouter) handleActiveHelmets(frame *models.Frame) []Notification {
	var helmetIDs []string
	if !r.decode(frame, &helmetIDs) {
		return nil
	}
	r.helmets.SetActiveHelmets(helmetIDs)
	return nil
}

func (r *EventRouter) handleNewVoice(frame *models.Frame) []Notification {
	var data models.NewVoicePayload
	if !r.decode(frame, &data) {
		return nil
	}
	if data.VoiceID == "" {
		r.logger.Warn("Dropping voice message frame without voice id")
		return nil
	}

	ts := time.Now()
	if data.Timestamp > 0 {
		ts = time.UnixMilli(data.Timestamp)
	}
	r.voice.Add(models.VoiceMessage{
		VoiceID:   data.VoiceID,
		Sender:    data.Sender,
		Recipient: data.Recipient,
		FileURL:   data.FileURL,
		Duration:  data.Duration,
		Status:    models.VoiceDelivered,
		Timestamp: ts,
	})
	return []Notification{
		NewNotification(fmt.Sprintf("New voice message from %s", data.Sender), models.SeverityInfo),
	}
}

func (r *EventRouter) handleVoiceStatus(frame *models.Frame) []Notification {
	var data models.VoiceStatusPayload
	if !r.decode(frame, &data) {
		return nil
	}
	r.voice.AdvanceStatus(data.VoiceID, data.Status)
	return nil
}

func (r *EventRouter) handleAlert(frame *models.Frame) []Notification {
	var data models.AlertPayload
	if !r.decode(frame, &data) {
		return nil
	}

	// Server-originated alert: appended as-is, bypassing derivation
	var ts time.Time
	if data.Timestamp > 0 {
		ts = time.UnixMilli(data.Timestamp)
	}
	severity := data.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}
	r.alerts.Add(&models.Alert{
		Type:      data.Type,
		Severity:  severity,
		Message:   data.Message,
		HelmetID:  data.HelmetID,
		Value:     data.Value,
		Timestamp: ts,
	})
	return []Notification{
		NewNotification(fmt.Sprintf("%s: %s", data.Type, data.Message), severity),
	}
}

func (r *EventRouter) handleSystemMessage(frame *models.Frame) []Notification {
	var data models.SystemMessagePayload
	if !r.decode(frame, &data) {
		return nil
	}
	if data.Text == "" {
		return nil
	}
	// Advisory only, touches no store
	return []Notification{NewNotification(data.Text, models.SeverityInfo)}
}

func (r *EventRouter) decode(frame *models.Frame, v interface{}) bool {
	if err := json.Unmarshal(frame.Payload, v); err != nil {
		r.logger.Warn("Dropping malformed frame payload",
			zap.String("type", frame.Type),
			zap.Error(err))
		return false
	}
	return true
}
