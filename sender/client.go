package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/gramflow/internal/httpclient"
	"github.com/prilive-com/gramflow/internal/resilience"
	"github.com/prilive-com/gramflow/internal/scrub"
	"github.com/prilive-com/gramflow/tg"
)

// 10MB cap on one API response.
const maxResponseSize = 10 << 20

// Client is a Telegram Bot API client for outbound calls.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *resilience.RateLimiter
	breaker    *gobreaker.CircuitBreaker[*apiResponse]
}

type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

// responseParameters carries Telegram's retry_after hint on 429 responses.
type responseParameters struct {
	RetryAfter      int   `json:"retry_after,omitempty"`
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL sets the API base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.config.BaseURL = url
	}
}

func newSenderHTTPClient(cfg Config) *http.Client {
	hc := httpclient.DefaultConfig()
	hc.RequestTimeout = cfg.RequestTimeout
	return httpclient.New(hc)
}

// New creates a sender client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := tg.ValidateToken(cfg.Token); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}

	c := &Client{
		config:     cfg,
		httpClient: newSenderHTTPClient(cfg),
		logger:     slog.Default(),
		limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			GlobalRPS:   cfg.GlobalRPS,
			GlobalBurst: cfg.GlobalBurst,
			KeyRPS:      cfg.PerChatRPS,
			KeyBurst:    cfg.PerChatBurst,
		}),
	}

	c.breaker = resilience.NewBreaker[*apiResponse](resilience.BreakerConfig{
		Name:         "gramflow-sender",
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		Threshold:    5,
		FailureRatio: 0.5,
		MinRequests:  3,
		OnStateChange: func(name, from, to string) {
			c.logger.Info("circuit breaker state changed",
				"name", name, "from", from, "to", to)
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// callJSON performs one rate-limited, retried API call and decodes the
// result into out when out is non-nil. chatKey scopes the per-chat limiter;
// calls without a chat (answerCallbackQuery) pass an empty key.
func (c *Client) callJSON(ctx context.Context, method string, payload any, out any, chatKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gramflow: %s: failed to marshal request: %w", method, err)
	}

	if err := c.limiter.Wait(ctx, chatKey); err != nil {
		return fmt.Errorf("gramflow: %s: rate limit wait: %w", method, err)
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: c.config.MaxRetries,
		BaseWait:    c.config.RetryBaseWait,
		MaxWait:     c.config.RetryMaxWait,
		Multiplier:  c.config.RetryFactor,
		Jitter:      0.2,
	}

	resp, err := resilience.Retry(ctx, retryCfg, func() (*apiResponse, error) {
		return c.doRequest(ctx, method, body)
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("gramflow: %s: failed to parse response: %w", method, err)
		}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method string, body []byte) (*apiResponse, error) {
	resp, err := c.breaker.Execute(func() (*apiResponse, error) {
		return c.roundTrip(ctx, method, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, resilience.Permanent(fmt.Errorf("gramflow: %s: %w", method, tg.ErrCircuitOpen))
		}

		var apiErr *tg.APIError
		if errors.As(err, &apiErr) {
			if !apiErr.IsRetryable() {
				return nil, resilience.Permanent(err)
			}
			if apiErr.RetryAfter > 0 {
				return nil, resilience.NewRetryableError(err, apiErr.RetryAfter)
			}
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, body []byte) (*apiResponse, error) {
	apiURL := fmt.Sprintf("%s%s/%s", c.config.BaseURL, c.config.Token.Value(), method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gramflow: %s: failed to create request: %w",
			method, scrub.TokenFromError(err, c.config.Token))
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gramflow: %s: request failed: %w",
			method, scrub.TokenFromError(err, c.config.Token))
	}
	defer func() {
		io.Copy(io.Discard, httpResp.Body)
		httpResp.Body.Close()
	}()

	limitedReader := io.LimitReader(httpResp.Body, maxResponseSize+1)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("gramflow: %s: failed to read response: %w", method, err)
	}
	if int64(len(respBody)) > maxResponseSize {
		return nil, fmt.Errorf("gramflow: %s: %w", method, tg.ErrResponseTooLarge)
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("gramflow: %s: failed to decode response: %w", method, err)
	}

	if !result.OK {
		if result.Parameters != nil && result.Parameters.RetryAfter > 0 {
			return nil, tg.NewAPIErrorWithRetry(method, result.ErrorCode, result.Description,
				time.Duration(result.Parameters.RetryAfter)*time.Second)
		}
		return nil, tg.NewAPIError(method, result.ErrorCode, result.Description)
	}

	return &result, nil
}
