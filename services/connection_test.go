package services

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"minewatch/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory transport double. Closing it unblocks ReadMessage
// with an error, like a real websocket drop.
type fakeConn struct {
	mu      sync.Mutex
	inbound chan []byte
	closed  bool
	frames  []models.Frame
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	raw, ok := <-c.inbound
	if !ok {
		return 0, nil, errors.New("use of closed connection")
	}
	return websocket.TextMessage, raw, nil
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("use of closed connection")
	}
	frame, ok := v.(models.Frame)
	if !ok {
		return errors.New("unexpected write payload")
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
	return nil
}

func (c *fakeConn) deliver(t *testing.T, frameType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(inboundFrame(t, frameType, payload))
	require.NoError(t, err)
	c.inbound <- raw
}

func (c *fakeConn) writtenFrames() []models.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Frame(nil), c.frames...)
}

// captureNotifier records every notification for later assertions
type captureNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (n *captureNotifier) Notify(item Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *captureNotifier) count(message string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, item := range n.items {
		if item.Message == message {
			total++
		}
	}
	return total
}

type managerFixture struct {
	manager  *ConnectionManager
	helmets  *HelmetStore
	alerts   *AlertStore
	voice    *VoiceStore
	notifier *captureNotifier
}

func newManagerFixture(dial Dialer) *managerFixture {
	logger := zapNop()
	cfg := testConfig()
	helmets := NewHelmetStore(logger)
	alerts := NewAlertStore(logger, cfg.AlertRetention)
	voice := NewVoiceStore(logger)
	router := NewEventRouter(logger, helmets, alerts, voice, NewAlertEngine(cfg))
	notifier := &captureNotifier{}
	manager := NewConnectionManager(cfg, logger, router, voice, notifier)
	manager.dial = dial
	return &managerFixture{
		manager:  manager,
		helmets:  helmets,
		alerts:   alerts,
		voice:    voice,
		notifier: notifier,
	}
}

func eventually(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	require.Eventually(t, condition, time.Second, time.Millisecond, msg)
}

func TestConnectFeedsFramesToRouter(t *testing.T) {
	conn := newFakeConn()
	f := newManagerFixture(func(url, token string) (Conn, error) {
		return conn, nil
	})

	f.manager.Connect("token")
	eventually(t, f.manager.IsConnected, "manager never reached connected state")
	assert.Equal(t, 1, f.notifier.count("Connected to server"))

	conn.deliver(t, models.FrameHelmetData, telemetry("HELMET-001", nil))
	eventually(t, func() bool {
		_, ok := f.helmets.Get("HELMET-001")
		return ok
	}, "telemetry frame never reached the registry")

	f.manager.Disconnect()
}

func TestConnectWhileConnectedIsNoOp(t *testing.T) {
	var dials atomic.Int32
	f := newManagerFixture(func(url, token string) (Conn, error) {
		dials.Add(1)
		return newFakeConn(), nil
	})

	f.manager.Connect("token")
	eventually(t, f.manager.IsConnected, "manager never reached connected state")

	f.manager.Connect("token")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, 1, f.notifier.count("Connected to server"))

	f.manager.Disconnect()
}

func TestRetryBudgetExhausted(t *testing.T) {
	var dials atomic.Int32
	f := newManagerFixture(func(url, token string) (Conn, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	})

	f.manager.Connect("token")
	eventually(t, func() bool {
		return f.manager.State() == models.StateFailed
	}, "manager never gave up")

	assert.Equal(t, int32(5), dials.Load())
	// One notification for the whole sequence, not one per attempt
	assert.Equal(t, 1, f.notifier.count("Failed to connect to server"))
	assert.Equal(t, 0, f.notifier.count("Connected to server"))
	assert.False(t, f.manager.IsConnected())
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	var dials atomic.Int32
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	f := newManagerFixture(func(url, token string) (Conn, error) {
		return conns[dials.Add(1)-1], nil
	})

	f.manager.Connect("token")
	eventually(t, f.manager.IsConnected, "manager never reached connected state")

	// Server drops the connection; the manager must dial again on its own
	conns[0].Close()
	eventually(t, func() bool {
		return dials.Load() == 2 && f.manager.IsConnected()
	}, "manager never re-established the connection")

	assert.Equal(t, 1, f.notifier.count("Disconnected from server"))
	assert.Equal(t, 2, f.notifier.count("Connected to server"))

	f.manager.Disconnect()
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newManagerFixture(func(url, token string) (Conn, error) {
		return newFakeConn(), nil
	})

	f.manager.Connect("token")
	eventually(t, f.manager.IsConnected, "manager never reached connected state")

	f.manager.Disconnect()
	f.manager.Disconnect()

	assert.Equal(t, models.StateDisconnected, f.manager.State())
	assert.Equal(t, 1, f.notifier.count("Disconnected from server"))
}

func TestDisconnectDuringBackoffCancelsRetry(t *testing.T) {
	var dials atomic.Int32
	f := newManagerFixture(func(url, token string) (Conn, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	})
	// Long enough that the first backoff is still pending when we tear down
	f.manager.config.ReconnectDelay = time.Minute
	f.manager.config.ReconnectDelayMax = time.Minute

	f.manager.Connect("token")
	eventually(t, func() bool {
		return f.manager.State() == models.StateReconnecting
	}, "manager never entered the backoff wait")

	f.manager.Disconnect()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, models.StateDisconnected, f.manager.State())
	assert.Equal(t, 0, f.notifier.count("Failed to connect to server"))
}

func TestSendWhileDisconnected(t *testing.T) {
	f := newManagerFixture(func(url, token string) (Conn, error) {
		return nil, errors.New("connection refused")
	})

	err := f.manager.SendVoiceMessage("HELMET-001", "https://storage.example.com/v.webm", 3.5)
	assert.True(t, errors.Is(err, ErrNotConnected))
	// The local record is only written after a successful send
	assert.Empty(t, f.voice.Messages())

	assert.True(t, errors.Is(f.manager.SendCommand("HELMET-001", "locate", nil), ErrNotConnected))
	assert.True(t, errors.Is(f.manager.RequestUpdate("HELMET-001"), ErrNotConnected))
}

func TestSendVoiceMessage(t *testing.T) {
	conn := newFakeConn()
	f := newManagerFixture(func(url, token string) (Conn, error) {
		return conn, nil
	})

	f.manager.Connect("token")
	eventually(t, f.manager.IsConnected, "manager never reached connected state")

	require.NoError(t, f.manager.SendVoiceMessage("HELMET-001", "https://storage.example.com/v.webm", 3.5))

	frames := conn.writtenFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, models.FrameSendVoice, frames[0].Type)

	var payload models.SendVoicePayload
	require.NoError(t, json.Unmarshal(frames[0].Payload, &payload))
	assert.Equal(t, "HELMET-001", payload.HelmetID)
	assert.Equal(t, "admin", payload.Sender)
	assert.Equal(t, 3.5, payload.Duration)

	messages := f.voice.Messages()
	require.Len(t, messages, 1)
	assert.NotEmpty(t, messages[0].VoiceID)
	assert.Equal(t, models.VoiceSent, messages[0].Status)
	assert.Equal(t, "HELMET-001", messages[0].Recipient)

	f.manager.Disconnect()
}

func TestSendCommandWithNilData(t *testing.T) {
	conn := newFakeConn()
	f := newManagerFixture(func(url, token string) (Conn, error) {
		return conn, nil
	})

	f.manager.Connect("token")
	eventually(t, f.manager.IsConnected, "manager never reached connected state")

	require.NoError(t, f.manager.SendCommand("HELMET-001", "locate", nil))

	frames := conn.writtenFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, models.FrameSendCommand, frames[0].Type)

	var payload models.SendCommandPayload
	require.NoError(t, json.Unmarshal(frames[0].Payload, &payload))
	assert.Equal(t, "locate", payload.Command)
	assert.NotNil(t, payload.Data)

	f.manager.Disconnect()
}
