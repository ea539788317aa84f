package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prilive-com/gramflow/internal/resilience"
	"github.com/prilive-com/gramflow/internal/scrub"
	"github.com/prilive-com/gramflow/tg"
)

const telegramAPIBaseURL = "https://api.telegram.org/bot"

// WebhookInfo contains information about the current webhook.
type WebhookInfo struct {
	URL                  string   `json:"url"`
	HasCustomCertificate bool     `json:"has_custom_certificate"`
	PendingUpdateCount   int      `json:"pending_update_count"`
	IPAddress            string   `json:"ip_address,omitempty"`
	LastErrorDate        int64    `json:"last_error_date,omitempty"`
	LastErrorMessage     string   `json:"last_error_message,omitempty"`
	MaxConnections       int      `json:"max_connections,omitempty"`
	AllowedUpdates       []string `json:"allowed_updates,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// SetWebhookRequest carries the parameters for one webhook registration.
type SetWebhookRequest struct {
	URL                string   `json:"url"`
	SecretToken        string   `json:"secret_token,omitempty"`
	DropPendingUpdates bool     `json:"drop_pending_updates,omitempty"`
	AllowedUpdates     []string `json:"allowed_updates,omitempty"`
}

// SetWebhook registers a webhook URL with Telegram. Registering the same URL
// again is a no-op on the platform side, so callers need not track whether
// registration already happened for this deployment.
func SetWebhook(ctx context.Context, client *http.Client, baseURL string, token tg.SecretToken, req SetWebhookRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return callJSON(ctx, client, baseURL, token, "setWebhook", body, nil)
}

// RegisterWebhook calls SetWebhook with a bounded retry budget (3 retries
// with backoff). On exhaustion the error is returned to the operator; the
// system never retries registration indefinitely. Non-retryable API errors
// (4xx other than 429) fail immediately.
func RegisterWebhook(ctx context.Context, client *http.Client, baseURL string, token tg.SecretToken, req SetWebhookRequest, cfg resilience.RetryConfig) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = SetWebhook(ctx, client, baseURL, token, req)
		if lastErr == nil {
			return nil
		}

		var apiErr *tg.APIError
		if errors.As(lastErr, &apiErr) && !apiErr.IsRetryable() {
			return lastErr
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resilience.Backoff(cfg, attempt, lastErr)):
		}
	}
	return lastErr
}

// DeleteWebhook removes the webhook from Telegram.
func DeleteWebhook(ctx context.Context, client *http.Client, baseURL string, token tg.SecretToken, dropPending bool) error {
	body, err := json.Marshal(map[string]bool{"drop_pending_updates": dropPending})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return callJSON(ctx, client, baseURL, token, "deleteWebhook", body, nil)
}

// GetWebhookInfo retrieves the current webhook configuration.
func GetWebhookInfo(ctx context.Context, client *http.Client, baseURL string, token tg.SecretToken) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := callJSON(ctx, client, baseURL, token, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// callJSON performs one Bot API call and decodes the result into out when
// out is non-nil.
func callJSON(ctx context.Context, client *http.Client, baseURL string, token tg.SecretToken, method string, body []byte, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = telegramAPIBaseURL
	}

	apiURL := fmt.Sprintf("%s%s/%s", baseURL, token.Value(), method)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", scrub.TokenFromError(err, token))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", scrub.TokenFromError(err, token))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return tg.NewAPIError(method, result.ErrorCode, result.Description)
	}

	if out != nil {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return fmt.Errorf("failed to parse %s result: %w", method, err)
		}
	}

	return nil
}
