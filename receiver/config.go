package receiver

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prilive-com/gramflow/tg"
)

// DefaultWebhookPath is the secret path suffix used when none is configured.
// Keeping the path unguessable is the only thing hiding the endpoint, so
// production deployments should set their own.
const DefaultWebhookPath = "/gramflow-webhook"

// Config holds receiver configuration.
type Config struct {
	// Bot token
	Token tg.SecretToken

	// API URL (defaults to https://api.telegram.org/bot)
	BaseURL string

	// Webhook configuration. PublicURL present selects webhook mode;
	// absent selects long polling (see SelectMode).
	PublicURL     string // Public HTTPS base URL, e.g. https://bot.example.com
	Port          int    // Local listen port
	WebhookPath   string // Secret path suffix the webhook listens on
	WebhookSecret string // Value for X-Telegram-Bot-Api-Secret-Token, optional
	DropPending   bool   // Discard updates queued before registration

	// Long polling configuration
	PollingTimeout     int           // Seconds to hold the getUpdates call (0-60)
	PollingLimit       int           // Max updates per request (1-100)
	PollingMaxErrors   int           // Max consecutive errors (0 = unlimited)
	AllowedUpdates     []string      // Filter update types
	RetryInitialDelay  time.Duration // Initial retry delay
	RetryMaxDelay      time.Duration // Maximum retry delay
	RetryBackoffFactor float64       // Backoff multiplier

	// Webhook request handling
	RateLimitRequests float64 // Requests per second
	RateLimitBurst    int     // Burst size
	MaxBodySize       int64   // Max webhook body size

	// Circuit breaker (polling)
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	// HTTP server timeouts
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// Shutdown
	ShutdownTimeout time.Duration // Bounded grace for server stop + dispatcher drain
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:               3000,
		WebhookPath:        DefaultWebhookPath,
		DropPending:        true,
		PollingTimeout:     30,
		PollingLimit:       100,
		PollingMaxErrors:   10,
		RetryInitialDelay:  time.Second,
		RetryMaxDelay:      60 * time.Second,
		RetryBackoffFactor: 2.0,
		RateLimitRequests:  10,
		RateLimitBurst:     20,
		MaxBodySize:        1 << 20, // 1MB
		BreakerMaxRequests: 5,
		BreakerInterval:    2 * time.Minute,
		BreakerTimeout:     60 * time.Second,
		ReadTimeout:        10 * time.Second,
		ReadHeaderTimeout:  2 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    15 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables.
// A missing bot token is the one fatal misconfiguration; everything else
// falls back to defaults.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Token = tg.SecretToken(getEnv("TELEGRAM_BOT_TOKEN", ""))
	if cfg.Token.IsEmpty() {
		return nil, tg.NewConfigError("TELEGRAM_BOT_TOKEN", "is required")
	}

	cfg.BaseURL = getEnv("TELEGRAM_API_URL", "")

	// Webhook settings. PUBLIC_URL presence is what flips the mode.
	cfg.PublicURL = strings.TrimSuffix(getEnv("PUBLIC_URL", ""), "/")
	if cfg.PublicURL != "" && !strings.HasPrefix(cfg.PublicURL, "https://") {
		return nil, tg.NewConfigError("PUBLIC_URL", "must start with https://")
	}

	if port, err := strconv.Atoi(getEnv("PORT", "3000")); err == nil {
		if port < 1 || port > 65535 {
			return nil, tg.NewConfigError("PORT", "must be 1-65535")
		}
		cfg.Port = port
	}

	if path := getEnv("WEBHOOK_PATH", DefaultWebhookPath); path != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		cfg.WebhookPath = path
	}
	cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", "")
	cfg.DropPending = strings.ToLower(getEnv("WEBHOOK_DROP_PENDING", "true")) != "false"

	// Polling settings
	if timeout, err := strconv.Atoi(getEnv("POLLING_TIMEOUT", "30")); err == nil {
		if timeout < 0 || timeout > 60 {
			return nil, tg.NewConfigError("POLLING_TIMEOUT", "must be 0-60")
		}
		cfg.PollingTimeout = timeout
	}

	if limit, err := strconv.Atoi(getEnv("POLLING_LIMIT", "100")); err == nil {
		if limit < 1 || limit > 100 {
			return nil, tg.NewConfigError("POLLING_LIMIT", "must be 1-100")
		}
		cfg.PollingLimit = limit
	}

	if maxErrors, err := strconv.Atoi(getEnv("POLLING_MAX_ERRORS", "10")); err == nil {
		cfg.PollingMaxErrors = maxErrors
	}

	if updates := getEnv("ALLOWED_UPDATES", ""); updates != "" {
		for _, u := range strings.Split(updates, ",") {
			if trimmed := strings.TrimSpace(u); trimmed != "" {
				cfg.AllowedUpdates = append(cfg.AllowedUpdates, trimmed)
			}
		}
	}

	if d, err := time.ParseDuration(getEnv("POLLING_RETRY_INITIAL_DELAY", "1s")); err == nil {
		cfg.RetryInitialDelay = d
	}
	if d, err := time.ParseDuration(getEnv("POLLING_RETRY_MAX_DELAY", "60s")); err == nil {
		cfg.RetryMaxDelay = d
	}
	if f, err := strconv.ParseFloat(getEnv("POLLING_RETRY_BACKOFF_FACTOR", "2.0"), 64); err == nil {
		cfg.RetryBackoffFactor = f
	}

	// Webhook request handling
	if f, err := strconv.ParseFloat(getEnv("RATE_LIMIT_REQUESTS", "10"), 64); err == nil {
		cfg.RateLimitRequests = f
	}
	if i, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err == nil {
		cfg.RateLimitBurst = i
	}
	if i, err := strconv.ParseInt(getEnv("MAX_BODY_SIZE", "1048576"), 10, 64); err == nil {
		cfg.MaxBodySize = i
	}

	// Circuit breaker
	if i, err := strconv.ParseUint(getEnv("BREAKER_MAX_REQUESTS", "5"), 10, 32); err == nil {
		cfg.BreakerMaxRequests = uint32(i)
	}
	if d, err := time.ParseDuration(getEnv("BREAKER_INTERVAL", "2m")); err == nil {
		cfg.BreakerInterval = d
	}
	if d, err := time.ParseDuration(getEnv("BREAKER_TIMEOUT", "60s")); err == nil {
		cfg.BreakerTimeout = d
	}

	// Server timeouts
	if d, err := time.ParseDuration(getEnv("READ_TIMEOUT", "10s")); err == nil {
		cfg.ReadTimeout = d
	}
	if d, err := time.ParseDuration(getEnv("READ_HEADER_TIMEOUT", "2s")); err == nil {
		cfg.ReadHeaderTimeout = d
	}
	if d, err := time.ParseDuration(getEnv("WRITE_TIMEOUT", "15s")); err == nil {
		cfg.WriteTimeout = d
	}
	if d, err := time.ParseDuration(getEnv("IDLE_TIMEOUT", "120s")); err == nil {
		cfg.IdleTimeout = d
	}

	if d, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s")); err == nil {
		cfg.ShutdownTimeout = d
	}

	return &cfg, nil
}

// WebhookURL returns the full callback URL registered with Telegram.
func (c Config) WebhookURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return c.PublicURL + c.WebhookPath
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
