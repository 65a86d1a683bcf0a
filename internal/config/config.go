package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	DatabaseURL string
	HTTPAddr    string

	JWTSecret string
	TokenTTL  time.Duration

	WhatsAppAPIURL     string
	WhatsAppInstanceID string
	WhatsAppToken      string
	ChartAPIURL        string

	AlertCooldown time.Duration

	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	DeviceCatalogPath string
}

const defaultCooldownMinutes = 30

// LoadConfig reads configuration from the environment, with .env support.
// Malformed numeric values fall back to their defaults rather than failing,
// so a bad cooldown setting cannot take ingestion down.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		HTTPAddr:           getEnv("HTTP_ADDR", ":3000"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 24*time.Hour),
		WhatsAppAPIURL:     getEnv("WHATSAPP_API_URL", ""),
		WhatsAppInstanceID: getEnv("WHATSAPP_INSTANCE_ID", ""),
		WhatsAppToken:      getEnv("WHATSAPP_API_TOKEN", ""),
		ChartAPIURL:        getEnv("CHART_API_URL", "https://quickchart.io/chart"),
		MQTTBroker:         getEnv("MQTT_BROKER", ""),
		MQTTClientID:       getEnv("MQTT_CLIENT_ID", "coldwatch-ingest"),
		MQTTTopic:          getEnv("MQTT_TOPIC", "coldwatch/telemetry"),
		DeviceCatalogPath:  getEnv("DEVICE_CATALOG_PATH", ""),
	}
	cfg.AlertCooldown = time.Duration(getEnvInt("ALERT_COOLDOWN_MINUTES", defaultCooldownMinutes)) * time.Minute

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
