package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minewatch/config"
	"minewatch/log"
	"minewatch/services"

	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger := log.GetInstance()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Validate required configuration
	if cfg.ServerWSURL == "" {
		logger.Fatal("SERVER_WS_URL is required")
	}
	if cfg.AuthToken == "" && cfg.FirebaseServiceAccountJSON == "" {
		logger.Fatal("Either AUTH_TOKEN or FIREBASE_SERVICE_ACCOUNT_JSON is required")
	}

	// Build notification sinks: structured log always, Telegram and webhook
	// when configured
	sinks := services.MultiNotifier{services.NewLogNotifier(logger)}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telegram, err := services.NewTelegramNotifier(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
		sinks = append(sinks, telegram)
	}
	if cfg.AlertWebhookURL != "" {
		sinks = append(sinks, services.NewWebhookNotifier(logger, cfg.AlertWebhookURL))
		logger.Info("Webhook notifier initialized", zap.String("url", cfg.AlertWebhookURL))
	}

	// Build the credential provider
	var tokens services.TokenProvider
	if cfg.FirebaseServiceAccountJSON != "" {
		tokens, err = services.NewFirebaseTokenProvider(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase token provider", zap.Error(err))
		}
	} else {
		tokens = services.StaticTokenProvider(cfg.AuthToken)
	}

	logger.Info("MINEWATCH helmet monitoring started",
		zap.String("server", cfg.ServerWSURL),
		zap.Float64("gas_max", cfg.GasMax),
		zap.Float64("heart_rate_max", cfg.HeartRateMax),
		zap.Float64("heart_rate_min", cfg.HeartRateMin),
		zap.Float64("battery_low", cfg.BatteryLow),
		zap.Float64("temperature_max", cfg.TemperatureMax),
		zap.Float64("oxygen_min", cfg.OxygenMin),
	)

	// Fetch the bearer credential and start the session
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	token, err := tokens.Token(ctx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to obtain auth token", zap.Error(err))
	}

	session := services.NewSession(cfg, logger, sinks)
	session.Start(token)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, ending session")
	session.End()
	logger.Info("MINEWATCH helmet monitoring stopped")
}
