package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	API      APIConfig
	Polling  PollingConfig
	Session  SessionConfig
	Tracking TrackingConfig
	Mock     MockConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PollingConfig struct {
	TrackingInterval time.Duration
	ChatInterval     time.Duration
	JitterFraction   float64
}

type SessionConfig struct {
	FilePath string
}

type TrackingConfig struct {
	HistoryLimit    int
	AverageSpeedKmh float64
}

// MockConfig configures the bundled development backend (cmd/mockapi).
type MockConfig struct {
	Port      string
	GinMode   string
	DBPath    string
	JWTSecret string
	OTPLength int
	OTPExpiry time.Duration
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		API: APIConfig{
			BaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api"),
			Timeout: getEnvAsDuration("API_TIMEOUT_SECONDS", 30),
		},
		Polling: PollingConfig{
			TrackingInterval: getEnvAsDuration("TRACKING_POLL_SECONDS", 10),
			ChatInterval:     getEnvAsDuration("CHAT_POLL_SECONDS", 3),
			JitterFraction:   0.2,
		},
		Session: SessionConfig{
			FilePath: getEnv("SESSION_FILE", defaultSessionPath()),
		},
		Tracking: TrackingConfig{
			HistoryLimit:    getEnvAsInt("TRACKING_HISTORY_LIMIT", 100),
			AverageSpeedKmh: 30.0,
		},
		Mock: MockConfig{
			Port:      getEnv("MOCK_PORT", "8080"),
			GinMode:   getEnv("GIN_MODE", "debug"),
			DBPath:    getEnv("MOCK_DB_PATH", "servigo-mock.db"),
			JWTSecret: getEnv("MOCK_JWT_SECRET", "dev-only-secret-do-not-use-in-production"),
			OTPLength: getEnvAsInt("MOCK_OTP_LENGTH", 6),
			OTPExpiry: getEnvAsDuration("MOCK_OTP_EXPIRY_SECONDS", 24*3600),
		},
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".servigo-session.json"
	}
	return home + "/.servigo-session.json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}
