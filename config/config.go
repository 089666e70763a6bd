package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telemetry backend
	ServerWSURL string
	AuthToken   string

	// Firebase credential minting (optional; AuthToken is the fallback)
	FirebaseServiceAccountJSON string
	OperatorUID                string

	// Notification sinks (optional)
	TelegramBotToken string
	TelegramChatID   string
	AlertWebhookURL  string

	// Thresholds for alert derivation
	GasMax          float64
	HeartRateMax    float64
	HeartRateMin    float64
	BatteryLow      float64
	BatteryCritical float64
	TemperatureMax  float64
	OxygenMin       float64

	// Connection retry policy
	ReconnectDelay       time.Duration
	ReconnectDelayMax    time.Duration
	ReconnectMaxAttempts int

	// Housekeeping
	AlertRetention        time.Duration
	NotifyThrottle        time.Duration
	PresenceTimeout       time.Duration
	PresenceCheckInterval time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		ServerWSURL:                getEnv("SERVER_WS_URL", "ws://localhost:5000/ws"),
		AuthToken:                  getEnv("AUTH_TOKEN", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		OperatorUID:                getEnv("OPERATOR_UID", "admin"),
		TelegramBotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:             getEnv("TELEGRAM_CHAT_ID", ""),
		AlertWebhookURL:            getEnv("ALERT_WEBHOOK_URL", ""),
		// Default thresholds - can be overridden by env vars
		GasMax:          getEnvFloat("GAS_MAX", 500.0),
		HeartRateMax:    getEnvFloat("HEART_RATE_MAX", 120.0),
		HeartRateMin:    getEnvFloat("HEART_RATE_MIN", 50.0),
		BatteryLow:      getEnvFloat("BATTERY_LOW", 20.0),
		BatteryCritical: getEnvFloat("BATTERY_CRITICAL", 10.0),
		TemperatureMax:  getEnvFloat("TEMPERATURE_MAX", 35.0),
		OxygenMin:       getEnvFloat("OXYGEN_MIN", 19.5),

		ReconnectDelay:       getEnvDuration("RECONNECT_DELAY", time.Second),
		ReconnectDelayMax:    getEnvDuration("RECONNECT_DELAY_MAX", 5*time.Second),
		ReconnectMaxAttempts: getEnvInt("RECONNECT_MAX_ATTEMPTS", 5),

		AlertRetention:        getEnvDuration("ALERT_RETENTION", 24*time.Hour),
		NotifyThrottle:        getEnvDuration("NOTIFY_THROTTLE", 15*time.Second),
		PresenceTimeout:       getEnvDuration("PRESENCE_TIMEOUT", 60*time.Second),
		PresenceCheckInterval: getEnvDuration("PRESENCE_CHECK_INTERVAL", 10*time.Second),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
