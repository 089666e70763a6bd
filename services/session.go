package services

import (
	"context"

	"minewatch/config"

	"go.uber.org/zap"
)

// Session owns the state containers for one authenticated operator session.
// The stores are created empty at session start and cleared entirely at
// session end; nothing outside the session holds its own writable copy.
type Session struct {
	Helmets *HelmetStore
	Alerts  *AlertStore
	Voice   *VoiceStore
	Conn    *ConnectionManager

	logger   *zap.Logger
	presence *PresenceMonitor
	cancel   context.CancelFunc
}

func NewSession(cfg *config.Config, logger *zap.Logger, notifier Notifier) *Session {
	helmets := NewHelmetStore(logger)
	alerts := NewAlertStore(logger, cfg.AlertRetention)
	voice := NewVoiceStore(logger)
	engine := NewAlertEngine(cfg)
	router := NewEventRouter(logger, helmets, alerts, voice, engine)
	conn := NewConnectionManager(cfg, logger, router, voice, notifier)

	return &Session{
		Helmets:  helmets,
		Alerts:   alerts,
		Voice:    voice,
		Conn:     conn,
		logger:   logger,
		presence: NewPresenceMonitor(cfg, helmets, notifier, logger),
	}
}

// Start opens the persistent connection with the given credential and begins
// presence monitoring.
func (s *Session) Start(token string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.Conn.Connect(token)
	go s.presence.Start(ctx)

	s.logger.Info("Session started")
}

// End tears the session down: the connection is closed and every store is
// cleared. Safe to call more than once.
func (s *Session) End() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.Conn.Disconnect()
	s.Helmets.Clear()
	s.Alerts.Clear()
	s.Voice.Clear()
	s.logger.Info("Session ended, stores cleared")
}
