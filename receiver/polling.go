package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prilive-com/gramflow/internal/httpclient"
	"github.com/prilive-com/gramflow/internal/metrics"
	"github.com/prilive-com/gramflow/internal/resilience"
	"github.com/prilive-com/gramflow/internal/scrub"
	"github.com/prilive-com/gramflow/tg"
	"github.com/sony/gobreaker/v2"
)

// 50MB cap on one getUpdates response.
const maxPollResponseSize = 50 << 20

// PollingClient pulls updates from Telegram's getUpdates API in a single
// long-lived loop and delivers them serially to the sink.
type PollingClient struct {
	token   tg.SecretToken
	baseURL string
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	timeout        int
	limit          int
	maxErrors      int
	allowedUpdates []string
	retryCfg       resilience.RetryConfig

	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	running           atomic.Bool
	offset            atomic.Int64
	consecutiveErrors atomic.Int32
	stopCh            chan struct{}
	stopped           atomic.Bool
	mu                sync.Mutex // protects stopCh recreation
	wg                sync.WaitGroup
}

// PollingOption configures the PollingClient.
type PollingOption func(*PollingClient)

// WithPollingHTTPClient sets a custom HTTP client.
func WithPollingHTTPClient(client *http.Client) PollingOption {
	return func(c *PollingClient) {
		c.client = client
	}
}

// WithPollingCircuitBreaker sets a custom circuit breaker.
func WithPollingCircuitBreaker(breaker *gobreaker.CircuitBreaker[[]byte]) PollingOption {
	return func(c *PollingClient) {
		c.breaker = breaker
	}
}

// WithPollingMetrics attaches a metrics set.
func WithPollingMetrics(m *metrics.Metrics) PollingOption {
	return func(c *PollingClient) {
		c.metrics = m
	}
}

// NewPollingClient creates a long polling client delivering to sink.
func NewPollingClient(sink Sink, logger *slog.Logger, cfg Config, opts ...PollingOption) *PollingClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramAPIBaseURL
	}

	c := &PollingClient{
		token:          cfg.Token,
		baseURL:        baseURL,
		sink:           sink,
		logger:         logger,
		timeout:        cfg.PollingTimeout,
		limit:          cfg.PollingLimit,
		maxErrors:      cfg.PollingMaxErrors,
		allowedUpdates: cfg.AllowedUpdates,
		retryCfg: resilience.RetryConfig{
			BaseWait:   cfg.RetryInitialDelay,
			MaxWait:    cfg.RetryMaxDelay,
			Multiplier: cfg.RetryBackoffFactor,
			Jitter:     0.25,
		},
		client: httpclient.NewLongPoll(cfg.PollingTimeout),
		stopCh: make(chan struct{}),
	}

	c.breaker = resilience.NewBreaker[[]byte](resilience.BreakerConfig{
		Name:         "gramflow-polling",
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		Threshold:    3,
		FailureRatio: 0.6,
		MinRequests:  3,
		OnStateChange: func(name, from, to string) {
			logger.Info("circuit breaker state changed",
				"name", name, "from", from, "to", to)
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins polling. The webhook registered for this token, if any, is
// deleted first: Telegram rejects getUpdates while a webhook is set.
func (c *PollingClient) Start(ctx context.Context) error {
	if c.sink == nil {
		return ErrSinkRequired
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.mu.Lock()
	if c.stopped.Load() {
		c.stopCh = make(chan struct{})
		c.stopped.Store(false)
	}
	c.mu.Unlock()

	c.logger.Info("deleting webhook before polling")
	if err := DeleteWebhook(ctx, c.client, c.baseURL, c.token, false); err != nil {
		c.running.Store(false)
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pollLoop(ctx)
	}()

	c.logger.Info("long polling started",
		"timeout", c.timeout,
		"limit", c.limit,
		"max_errors", c.maxErrors,
	)

	return nil
}

// Stop gracefully stops the polling client and waits for the loop to exit.
func (c *PollingClient) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	c.mu.Lock()
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	c.stopped.Store(true)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("long polling stopped")
}

// Running returns true if polling is active.
func (c *PollingClient) Running() bool {
	return c.running.Load()
}

// Healthy reports whether the loop is running and under its error budget.
func (c *PollingClient) Healthy() bool {
	if c.maxErrors == 0 {
		return c.running.Load()
	}
	return c.running.Load() && int(c.consecutiveErrors.Load()) < c.maxErrors
}

// Offset returns the current update offset.
func (c *PollingClient) Offset() int64 {
	return c.offset.Load()
}

func (c *PollingClient) pollLoop(ctx context.Context) {
	defer c.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("polling stopped: context cancelled")
			return
		case <-c.stopCh:
			c.logger.Info("polling stopped: stop signal")
			return
		default:
		}

		updates, err := c.fetchUpdates(ctx)
		if err != nil {
			errCount := c.consecutiveErrors.Add(1)
			backoff := resilience.Backoff(c.retryCfg, int(errCount)-1, err)
			c.logger.Error("fetch updates failed",
				"error", err,
				"consecutive_errors", errCount,
				"retry_delay", backoff,
			)

			if c.maxErrors > 0 && int(errCount) >= c.maxErrors {
				c.logger.Error("max consecutive errors exceeded", "max_errors", c.maxErrors)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-time.After(backoff):
				continue
			}
		}

		c.consecutiveErrors.Store(0)

		// The offset advances only after the sink accepted the update, so a
		// shutdown mid-batch redelivers instead of losing updates.
		for _, update := range updates {
			select {
			case <-ctx.Done():
				c.logger.Info("stopping update delivery: context cancelled")
				return
			case <-c.stopCh:
				c.logger.Info("stopping update delivery: stop signal")
				return
			default:
			}

			if c.metrics != nil {
				c.metrics.UpdatesReceived.WithLabelValues("polling").Inc()
			}
			c.sink.Dispatch(ctx, update)

			if int64(update.UpdateID) >= c.offset.Load() {
				c.offset.Store(int64(update.UpdateID) + 1)
			}
			c.logger.Debug("update dispatched", "update_id", update.UpdateID)
		}
	}
}

type getUpdatesResponse struct {
	OK          bool        `json:"ok"`
	Result      []tg.Update `json:"result,omitempty"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
}

func (c *PollingClient) fetchUpdates(ctx context.Context) ([]tg.Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(c.timeout))
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("offset", strconv.FormatInt(c.offset.Load(), 10))

	if len(c.allowedUpdates) > 0 {
		encoded, err := json.Marshal(c.allowedUpdates)
		if err == nil {
			params.Set("allowed_updates", string(encoded))
		}
	}

	apiURL := fmt.Sprintf("%s%s/getUpdates?%s",
		c.baseURL,
		c.token.Value(),
		params.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", scrub.TokenFromError(err, c.token))
	}

	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, scrub.TokenFromError(err, c.token)
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		limitedReader := io.LimitReader(resp.Body, maxPollResponseSize+1)
		body, err := io.ReadAll(limitedReader)
		if err != nil {
			return nil, err
		}
		if int64(len(body)) > maxPollResponseSize {
			return nil, tg.ErrResponseTooLarge
		}

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest &&
			resp.StatusCode != http.StatusConflict {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return body, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, fmt.Errorf("%w: %w", tg.ErrCircuitOpen, err)
		}
		return nil, fmt.Errorf("getUpdates request failed: %w", err)
	}

	var response getUpdatesResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates response: %w", err)
	}

	if !response.OK {
		return nil, tg.NewAPIError("getUpdates", response.ErrorCode, response.Description)
	}

	return response.Result, nil
}
