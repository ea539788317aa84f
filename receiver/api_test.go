package receiver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prilive-com/gramflow/internal/resilience"
	"github.com/prilive-com/gramflow/internal/testutil"
	"github.com/prilive-com/gramflow/receiver"
	"github.com/prilive-com/gramflow/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = tg.SecretToken("123456:test-token")

func fastRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: 3,
		BaseWait:    time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// ==================== SetWebhook ====================

func TestSetWebhook_SendsParameters(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()

	var got receiver.SetWebhookRequest
	api.Handle("setWebhook", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	})

	err := receiver.SetWebhook(context.Background(), http.DefaultClient, api.BaseURL(), testToken,
		receiver.SetWebhookRequest{
			URL:                "https://bot.example.com/hooks/tg-4f2a",
			SecretToken:        "secret",
			DropPendingUpdates: true,
			AllowedUpdates:     []string{"message"},
		})
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.com/hooks/tg-4f2a", got.URL)
	assert.Equal(t, "secret", got.SecretToken)
	assert.True(t, got.DropPendingUpdates)
	assert.Equal(t, []string{"message"}, got.AllowedUpdates)
}

func TestSetWebhook_APIError(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.Handle("setWebhook", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error_code": 400, "description": "bad webhook: HTTPS url must be provided",
		})
	})

	err := receiver.SetWebhook(context.Background(), http.DefaultClient, api.BaseURL(), testToken,
		receiver.SetWebhookRequest{URL: "http://insecure.example.com"})
	require.Error(t, err)

	var apiErr *tg.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.False(t, apiErr.IsRetryable())
}

// ==================== RegisterWebhook ====================

func TestRegisterWebhook_RetriesTransientErrors(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()

	var mu sync.Mutex
	calls := 0
	api.Handle("setWebhook", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()

		if call < 3 {
			json.NewEncoder(w).Encode(map[string]any{
				"ok": false, "error_code": 502, "description": "bad gateway",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	})

	err := receiver.RegisterWebhook(context.Background(), http.DefaultClient, api.BaseURL(), testToken,
		receiver.SetWebhookRequest{URL: "https://bot.example.com/hook"}, fastRetryConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, api.CallCount("setWebhook"))
}

func TestRegisterWebhook_NonRetryableError_FailsFast(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.Handle("setWebhook", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error_code": 401, "description": "Unauthorized",
		})
	})

	err := receiver.RegisterWebhook(context.Background(), http.DefaultClient, api.BaseURL(), testToken,
		receiver.SetWebhookRequest{URL: "https://bot.example.com/hook"}, fastRetryConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, tg.ErrUnauthorized)

	assert.Equal(t, 1, api.CallCount("setWebhook"), "401 must not be retried")
}

func TestRegisterWebhook_BudgetExhausted_ReturnsLastError(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.Handle("setWebhook", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error_code": 500, "description": "internal error",
		})
	})

	err := receiver.RegisterWebhook(context.Background(), http.DefaultClient, api.BaseURL(), testToken,
		receiver.SetWebhookRequest{URL: "https://bot.example.com/hook"}, fastRetryConfig())
	require.Error(t, err)

	var apiErr *tg.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Code)
	assert.Equal(t, 4, api.CallCount("setWebhook"), "initial attempt plus three retries")
}

// ==================== DeleteWebhook / GetWebhookInfo ====================

func TestDeleteWebhook_SendsDropPending(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()

	var got map[string]bool
	api.Handle("deleteWebhook", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	})

	err := receiver.DeleteWebhook(context.Background(), http.DefaultClient, api.BaseURL(), testToken, true)
	require.NoError(t, err)

	assert.True(t, got["drop_pending_updates"])
}

func TestGetWebhookInfo_DecodesResult(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.Handle("getWebhookInfo", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"url":                  "https://bot.example.com/hook",
				"pending_update_count": 5,
			},
		})
	})

	info, err := receiver.GetWebhookInfo(context.Background(), http.DefaultClient, api.BaseURL(), testToken)
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.com/hook", info.URL)
	assert.Equal(t, 5, info.PendingUpdateCount)
}
