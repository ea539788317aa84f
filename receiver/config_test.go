package receiver_test

import (
	"testing"
	"time"

	"github.com/prilive-com/gramflow/receiver"
	"github.com/prilive-com/gramflow/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Defaults ====================

func TestDefaultConfig_Values(t *testing.T) {
	cfg := receiver.DefaultConfig()

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, receiver.DefaultWebhookPath, cfg.WebhookPath)
	assert.True(t, cfg.DropPending)
	assert.Equal(t, 30, cfg.PollingTimeout)
	assert.Equal(t, 100, cfg.PollingLimit)
	assert.Equal(t, int64(1<<20), cfg.MaxBodySize)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

// ==================== LoadConfig ====================

func TestLoadConfig_MissingToken_Fails(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := receiver.LoadConfig()
	require.Error(t, err)

	var cfgErr *tg.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TELEGRAM_BOT_TOKEN", cfgErr.Key)
}

func TestLoadConfig_TokenOnly_UsesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")

	cfg, err := receiver.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "123456:ABC-DEF", cfg.Token.Value())
	assert.Empty(t, cfg.PublicURL)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, receiver.ModeLongPolling, receiver.SelectMode(*cfg))
}

func TestLoadConfig_PublicURL_MustBeHTTPS(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("PUBLIC_URL", "http://bot.example.com")

	_, err := receiver.LoadConfig()
	require.Error(t, err)

	var cfgErr *tg.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "PUBLIC_URL", cfgErr.Key)
}

func TestLoadConfig_PublicURL_TrailingSlashTrimmed(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("PUBLIC_URL", "https://bot.example.com/")

	cfg, err := receiver.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.com", cfg.PublicURL)
	assert.Equal(t, receiver.ModeWebhook, receiver.SelectMode(*cfg))
}

func TestLoadConfig_WebhookPath_GetsLeadingSlash(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("WEBHOOK_PATH", "hooks/tg-4f2a")

	cfg, err := receiver.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/hooks/tg-4f2a", cfg.WebhookPath)
}

func TestLoadConfig_PortOutOfRange_Fails(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("PORT", "70000")

	_, err := receiver.LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_PollingTimeoutOutOfRange_Fails(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("POLLING_TIMEOUT", "90")

	_, err := receiver.LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_AllowedUpdates_ParsesCSV(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("ALLOWED_UPDATES", "message, callback_query ,edited_message")

	cfg, err := receiver.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"message", "callback_query", "edited_message"}, cfg.AllowedUpdates)
}

func TestLoadConfig_DropPending_CanBeDisabled(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("WEBHOOK_DROP_PENDING", "false")

	cfg, err := receiver.LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.DropPending)
}

// ==================== WebhookURL ====================

func TestWebhookURL_JoinsBaseAndPath(t *testing.T) {
	cfg := receiver.DefaultConfig()
	cfg.PublicURL = "https://bot.example.com"
	cfg.WebhookPath = "/hooks/tg-4f2a"

	assert.Equal(t, "https://bot.example.com/hooks/tg-4f2a", cfg.WebhookURL())
}

func TestWebhookURL_EmptyWithoutPublicURL(t *testing.T) {
	cfg := receiver.DefaultConfig()

	assert.Empty(t, cfg.WebhookURL())
}
