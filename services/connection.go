package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"minewatch/config"
	"minewatch/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when an outbound operation is attempted while
// the connection is not established. Callers surface it to the operator; it
// is never fatal.
var ErrNotConnected = errors.New("not connected to server")

// Conn is the transport surface the manager needs from a websocket
// connection. *websocket.Conn satisfies it; tests substitute their own.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens the transport with the bearer credential attached. The server
// authenticates the credential and rejects by closing, which surfaces here as
// a dial or read error.
type Dialer func(url, token string) (Conn, error)

func wsDial(url, token string) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ConnectionManager owns exactly one logical persistent connection to the
// telemetry backend. State transitions emit a user-facing notification once
// per transition, never once per retry attempt.
type ConnectionManager struct {
	config   *config.Config
	logger   *zap.Logger
	router   *EventRouter
	voice    *VoiceStore
	notifier Notifier
	dial     Dialer

	mu      sync.Mutex
	state   models.ConnectionState
	conn    Conn
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

func NewConnectionManager(cfg *config.Config, logger *zap.Logger, router *EventRouter, voice *VoiceStore, notifier Notifier) *ConnectionManager {
	return &ConnectionManager{
		config:   cfg,
		logger:   logger,
		router:   router,
		voice:    voice,
		notifier: notifier,
		dial:     wsDial,
	}
}

// Connect opens the persistent connection using the given bearer credential.
// It is a logged no-op when a connection attempt is already underway or
// established. The connect and retry sequence runs in the background; inbound
// frames keep flowing while any outbound operation awaits the transport.
func (cm *ConnectionManager) Connect(token string) {
	cm.mu.Lock()
	switch cm.state {
	case models.StateConnected, models.StateConnecting, models.StateReconnecting:
		cm.mu.Unlock()
		cm.logger.Info("Already connected, ignoring connect request")
		return
	}
	cm.state = models.StateConnecting
	ctx, cancel := context.WithCancel(context.Background())
	cm.cancel = cancel
	cm.mu.Unlock()

	go cm.run(ctx, token)
}

// run drives the connect/reconnect state machine until the retry budget is
// exhausted or Disconnect tears it down.
func (cm *ConnectionManager) run(ctx context.Context, token string) {
	attempt := 0
	for {
		conn, err := cm.dial(cm.config.ServerWSURL, token)
		if err != nil {
			attempt++
			cm.logger.Warn("Failed to connect to telemetry server",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cm.config.ReconnectMaxAttempts),
				zap.Error(err))

			if attempt >= cm.config.ReconnectMaxAttempts {
				cm.setState(models.StateFailed)
				cm.logger.Error("Retry budget exhausted, giving up",
					zap.Int("attempts", attempt))
				cm.notifier.Notify(NewNotification("Failed to connect to server", models.SeverityCritical))
				return
			}

			cm.setState(models.StateReconnecting)
			if !cm.sleep(ctx, cm.backoff(attempt)) {
				return
			}
			continue
		}

		cm.mu.Lock()
		if ctx.Err() != nil {
			cm.mu.Unlock()
			conn.Close()
			return
		}
		cm.conn = conn
		cm.state = models.StateConnected
		cm.mu.Unlock()

		// A successful connection resets the attempt counter
		attempt = 0
		cm.logger.Info("Connected to telemetry server", zap.String("url", cm.config.ServerWSURL))
		cm.notifier.Notify(NewNotification("Connected to server", models.SeverityInfo))

		err = cm.readLoop(conn)
		if ctx.Err() != nil {
			// Disconnect already tore everything down
			return
		}

		cm.mu.Lock()
		cm.conn = nil
		cm.state = models.StateReconnecting
		cm.mu.Unlock()

		cm.logger.Warn("Connection to telemetry server lost", zap.Error(err))
		cm.notifier.Notify(NewNotification("Disconnected from server", models.SeverityWarning))
	}
}

// readLoop feeds inbound frames to the router, in transport delivery order,
// until the connection errors out.
func (cm *ConnectionManager) readLoop(conn Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame models.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			cm.logger.Warn("Dropping undecodable frame", zap.Error(err))
			continue
		}

		for _, n := range cm.router.HandleFrame(&frame) {
			cm.notifier.Notify(n)
		}
	}
}

// backoff returns the stepped retry delay: attempt x initial delay, capped
func (cm *ConnectionManager) backoff(attempt int) time.Duration {
	delay := time.Duration(attempt) * cm.config.ReconnectDelay
	if delay > cm.config.ReconnectDelayMax {
		delay = cm.config.ReconnectDelayMax
	}
	return delay
}

// sleep waits out a backoff delay; false means the manager was torn down
func (cm *ConnectionManager) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Disconnect tears down the transport and any pending reconnection timer.
// It is idempotent and safe to call from any state, including mid-backoff.
func (cm *ConnectionManager) Disconnect() {
	cm.mu.Lock()
	if cm.state == models.StateDisconnected {
		cm.mu.Unlock()
		return
	}
	if cm.cancel != nil {
		cm.cancel()
		cm.cancel = nil
	}
	conn := cm.conn
	cm.conn = nil
	wasConnected := cm.state == models.StateConnected
	cm.state = models.StateDisconnected
	cm.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	cm.logger.Info("Disconnected from telemetry server")
	if wasConnected {
		cm.notifier.Notify(NewNotification("Disconnected from server", models.SeverityInfo))
	}
}

// SendVoiceMessage serializes an outbound voice message and records it
// locally with a freshly assigned voice id and status "sent".
func (cm *ConnectionManager) SendVoiceMessage(helmetID, fileURL string, duration float64) error {
	now := time.Now()
	err := cm.send(models.FrameSendVoice, models.SendVoicePayload{
		HelmetID:  helmetID,
		FileURL:   fileURL,
		Duration:  duration,
		Sender:    "admin",
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return err
	}

	cm.voice.Add(models.VoiceMessage{
		VoiceID:   uuid.New().String(),
		Sender:    "admin",
		Recipient: helmetID,
		FileURL:   fileURL,
		Duration:  duration,
		Status:    models.VoiceSent,
		Timestamp: now,
	})
	return nil
}

// SendCommand serializes a device command frame
func (cm *ConnectionManager) SendCommand(helmetID, command string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	return cm.send(models.FrameSendCommand, models.SendCommandPayload{
		HelmetID:  helmetID,
		Command:   command,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// RequestUpdate asks the backend to push fresh telemetry for one helmet
func (cm *ConnectionManager) RequestUpdate(helmetID string) error {
	return cm.send(models.FrameRequestUpdate, models.RequestUpdatePayload{
		HelmetID: helmetID,
	})
}

func (cm *ConnectionManager) send(frameType string, payload interface{}) error {
	cm.mu.Lock()
	conn := cm.conn
	connected := cm.state == models.StateConnected
	cm.mu.Unlock()

	if !connected || conn == nil {
		cm.logger.Warn("Rejecting outbound frame while not connected",
			zap.String("type", frameType))
		return ErrNotConnected
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := models.Frame{
		Type:      frameType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}

	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

// IsConnected is a pure predicate on the current state
func (cm *ConnectionManager) IsConnected() bool {
	return cm.State() == models.StateConnected
}

// State returns the current connection state
func (cm *ConnectionManager) State() models.ConnectionState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

func (cm *ConnectionManager) setState(state models.ConnectionState) {
	cm.mu.Lock()
	cm.state = state
	cm.mu.Unlock()
}
