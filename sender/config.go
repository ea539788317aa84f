package sender

import (
	"os"
	"strconv"
	"time"

	"github.com/prilive-com/gramflow/tg"
)

// Config holds sender configuration.
type Config struct {
	// Bot token
	Token tg.SecretToken

	// API settings
	BaseURL        string
	RequestTimeout time.Duration

	// Rate limiting. Telegram allows ~30 msg/s overall and ~1 msg/s per chat.
	GlobalRPS    float64
	GlobalBurst  int
	PerChatRPS   float64
	PerChatBurst int

	// Circuit breaker
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	// Retry settings
	MaxRetries    int
	RetryBaseWait time.Duration
	RetryMaxWait  time.Duration
	RetryFactor   float64

	// Content limits
	MaxTextLength int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "https://api.telegram.org/bot",
		RequestTimeout:     30 * time.Second,
		GlobalRPS:          30,
		GlobalBurst:        10,
		PerChatRPS:         1,
		PerChatBurst:       3,
		BreakerMaxRequests: 5,
		BreakerInterval:    60 * time.Second,
		BreakerTimeout:     30 * time.Second,
		MaxRetries:         3,
		RetryBaseWait:      time.Second,
		RetryMaxWait:       30 * time.Second,
		RetryFactor:        2.0,
		MaxTextLength:      4096,
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Token = tg.SecretToken(getEnv("TELEGRAM_BOT_TOKEN", ""))
	if cfg.Token.IsEmpty() {
		return nil, tg.NewConfigError("TELEGRAM_BOT_TOKEN", "is required")
	}

	if url := getEnv("TELEGRAM_API_URL", ""); url != "" {
		cfg.BaseURL = url
	}

	if d, err := time.ParseDuration(getEnv("SENDER_REQUEST_TIMEOUT", "30s")); err == nil {
		cfg.RequestTimeout = d
	}
	if f, err := strconv.ParseFloat(getEnv("SENDER_GLOBAL_RPS", "30"), 64); err == nil {
		cfg.GlobalRPS = f
	}
	if i, err := strconv.Atoi(getEnv("SENDER_GLOBAL_BURST", "10")); err == nil {
		cfg.GlobalBurst = i
	}
	if f, err := strconv.ParseFloat(getEnv("SENDER_PER_CHAT_RPS", "1"), 64); err == nil {
		cfg.PerChatRPS = f
	}
	if i, err := strconv.Atoi(getEnv("SENDER_PER_CHAT_BURST", "3")); err == nil {
		cfg.PerChatBurst = i
	}
	if i, err := strconv.Atoi(getEnv("SENDER_MAX_RETRIES", "3")); err == nil {
		cfg.MaxRetries = i
	}
	if d, err := time.ParseDuration(getEnv("SENDER_RETRY_BASE_WAIT", "1s")); err == nil {
		cfg.RetryBaseWait = d
	}
	if d, err := time.ParseDuration(getEnv("SENDER_RETRY_MAX_WAIT", "30s")); err == nil {
		cfg.RetryMaxWait = d
	}

	return &cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
