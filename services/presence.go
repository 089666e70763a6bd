package services

import (
	"context"
	"fmt"
	"time"

	"minewatch/config"
	"minewatch/models"

	"go.uber.org/zap"
)

// PresenceMonitor watches the helmet registry for devices that have stopped
// reporting and flips them to unknown, notifying the operator once per
// transition.
type PresenceMonitor struct {
	config   *config.Config
	helmets  *HelmetStore
	notifier Notifier
	logger   *zap.Logger
}

func NewPresenceMonitor(cfg *config.Config, helmets *HelmetStore, notifier Notifier, logger *zap.Logger) *PresenceMonitor {
	return &PresenceMonitor{
		config:   cfg,
		helmets:  helmets,
		notifier: notifier,
		logger:   logger,
	}
}

// Start runs the staleness checker until the context is cancelled
func (p *PresenceMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PresenceCheckInterval)
	defer ticker.Stop()

	p.logger.Info("Presence monitor started",
		zap.Duration("timeout", p.config.PresenceTimeout),
		zap.Duration("check_interval", p.config.PresenceCheckInterval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Presence monitor stopped")
			return
		case <-ticker.C:
			p.checkStale()
		}
	}
}

func (p *PresenceMonitor) checkStale() {
	for _, helmetID := range p.helmets.MarkStale(p.config.PresenceTimeout) {
		p.logger.Warn("Helmet stopped reporting",
			zap.String("helmet_id", helmetID),
			zap.Duration("timeout", p.config.PresenceTimeout))
		p.notifier.Notify(NewNotification(
			fmt.Sprintf("Helmet %s stopped reporting", helmetID),
			models.SeverityWarning))
	}
}
