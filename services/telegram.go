package services

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"minewatch/config"
	"minewatch/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier forwards notifications to a Telegram chat. Repeats of the
// same message within the throttle window are suppressed at this sink only;
// the alert log still records every alert.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	logger   *zap.Logger
	throttle time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewTelegramNotifier(cfg *config.Config, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &TelegramNotifier{
		bot:      bot,
		chatID:   chatID,
		logger:   logger,
		throttle: cfg.NotifyThrottle,
		lastSent: make(map[string]time.Time),
	}, nil
}

func (t *TelegramNotifier) Notify(n Notification) {
	if t.shouldThrottle(n.Message) {
		t.logger.Debug("Throttling telegram notification", zap.String("message", n.Message))
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, t.format(n))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Failed to send telegram notification",
			zap.String("severity", string(n.Severity)),
			zap.Error(err))
		return
	}

	t.markSent(n.Message)
	t.logger.Debug("Telegram notification sent", zap.String("severity", string(n.Severity)))
}

// shouldThrottle reports whether this message was already delivered within
// the throttle window.
func (t *TelegramNotifier) shouldThrottle(message string) bool {
	if t.throttle <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	last, exists := t.lastSent[message]
	if !exists {
		return false
	}
	return time.Since(last) < t.throttle
}

func (t *TelegramNotifier) markSent(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSent[message] = time.Now()

	// Keep the dedup map from growing unbounded
	if len(t.lastSent) > 500 {
		cutoff := time.Now().Add(-t.throttle)
		for key, sent := range t.lastSent {
			if sent.Before(cutoff) {
				delete(t.lastSent, key)
			}
		}
	}
}

func (t *TelegramNotifier) format(n Notification) string {
	var icon string
	switch n.Severity {
	case models.SeverityCritical:
		icon = "🔴"
	case models.SeverityWarning:
		icon = "🟡"
	default:
		icon = "ℹ️"
	}
	return fmt.Sprintf("%s <b>MINEWATCH</b>\n\n%s", icon, n.Message)
}
