package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseURL      string
	StateFile    string
	CachePath    string
	MicBridgeURL string
	HTTPTimeout  time.Duration
	LogDir       string
	JWTSecret    string
	StubAddr     string
}

func LoadConfig() Config {
	// .env is optional; system environment wins when both are present.
	_ = godotenv.Load()

	return Config{
		BaseURL:      getEnv("MITRA_BASE_URL", "http://localhost:8000"),
		StateFile:    getEnv("MITRA_STATE_FILE", ".mitra/state.yaml"),
		CachePath:    getEnv("MITRA_CACHE_PATH", ""),
		MicBridgeURL: getEnv("MITRA_MIC_BRIDGE_URL", ""),
		HTTPTimeout:  time.Duration(getEnvInt("MITRA_HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
		LogDir:       getEnv("MITRA_LOG_DIR", "./logs"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		StubAddr:     getEnv("STUB_ADDR", ":8000"),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
