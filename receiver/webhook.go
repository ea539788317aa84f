package receiver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prilive-com/gramflow/internal/metrics"
	"github.com/prilive-com/gramflow/tg"
	"golang.org/x/time/rate"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler terminates Telegram webhook POSTs: it authenticates the
// request, decodes the update, and hands it to the sink asynchronously so the
// HTTP response returns before handlers run. Telegram redelivers on non-2xx,
// so every accepted update is answered 200 even when handling fails later.
type WebhookHandler struct {
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	secret      string
	maxBodySize int64
	limiter     *rate.Limiter
}

// WebhookOption configures the WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithWebhookMetrics attaches a metrics set.
func WithWebhookMetrics(m *metrics.Metrics) WebhookOption {
	return func(h *WebhookHandler) {
		h.metrics = m
	}
}

// NewWebhookHandler creates a handler delivering decoded updates to sink.
func NewWebhookHandler(sink Sink, logger *slog.Logger, cfg Config, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		sink:        sink,
		logger:      logger,
		secret:      cfg.WebhookSecret,
		maxBodySize: cfg.MaxBodySize,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.reject(w, r, http.StatusMethodNotAllowed, "method")
		return
	}

	if !h.limiter.Allow() {
		h.reject(w, r, http.StatusTooManyRequests, "rate_limit")
		return
	}

	if h.secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.reject(w, r, http.StatusUnauthorized, "secret")
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(w, r, http.StatusRequestEntityTooLarge, "body_size")
			return
		}
		h.reject(w, r, http.StatusBadRequest, "body_read")
		return
	}

	var update tg.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("malformed webhook payload",
			"error", err,
			"remote_addr", r.RemoteAddr,
		)
		h.reject(w, r, http.StatusBadRequest, "payload")
		return
	}

	if h.metrics != nil {
		h.metrics.UpdatesReceived.WithLabelValues("webhook").Inc()
	}

	// Ack before handlers run. Failures past this point are the handlers'
	// problem, not the transport's. The request context dies with the
	// response, so handlers get a detached one.
	h.sink.Go(context.WithoutCancel(r.Context()), update)

	w.WriteHeader(http.StatusOK)
	h.logger.Debug("webhook update accepted",
		"update_id", update.UpdateID,
		"kind", update.Kind().String(),
	)
}

func (h *WebhookHandler) reject(w http.ResponseWriter, r *http.Request, code int, reason string) {
	if h.metrics != nil {
		h.metrics.WebhookRejections.WithLabelValues(reason).Inc()
	}
	h.logger.Warn("webhook request rejected",
		"status", code,
		"reason", reason,
		"remote_addr", r.RemoteAddr,
	)
	http.Error(w, http.StatusText(code), code)
}
