package gramflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/prilive-com/gramflow/dispatch"
	"github.com/prilive-com/gramflow/internal/httpclient"
	"github.com/prilive-com/gramflow/internal/metrics"
	"github.com/prilive-com/gramflow/internal/resilience"
	"github.com/prilive-com/gramflow/receiver"
	"github.com/prilive-com/gramflow/sender"
	"github.com/prilive-com/gramflow/tg"
)

// Bot ties the selected update transport to the dispatcher and carries an
// outbound sender for handlers to reply with.
type Bot struct {
	cfg     receiver.Config
	mode    receiver.Mode
	logger  *slog.Logger
	metrics *metrics.Metrics

	dispatcher *dispatch.Dispatcher
	sender     *sender.Client
	httpClient *http.Client

	polling *receiver.PollingClient
	server  *receiver.Server

	maxInFlight int
	senderCfg   *sender.Config
	noSender    bool

	running atomic.Bool
	errCh   chan error
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithMaxInFlight caps concurrent asynchronous dispatches (webhook mode).
func WithMaxInFlight(n int) Option {
	return func(b *Bot) {
		b.maxInFlight = n
	}
}

// WithSenderConfig overrides the outbound client configuration. The token
// is always taken from the receiver configuration.
func WithSenderConfig(cfg sender.Config) Option {
	return func(b *Bot) {
		b.senderCfg = &cfg
	}
}

// WithoutSender disables the outbound client for bots that only consume
// updates.
func WithoutSender() Option {
	return func(b *Bot) {
		b.noSender = true
	}
}

// New creates a Bot from configuration. The delivery mode is fixed here, by
// receiver.SelectMode, and never changes for the lifetime of the instance.
func New(cfg receiver.Config, opts ...Option) (*Bot, error) {
	if cfg.Token.IsEmpty() {
		return nil, receiver.ErrTokenRequired
	}
	if err := tg.ValidateToken(cfg.Token); err != nil {
		return nil, err
	}

	b := &Bot{
		cfg:     cfg,
		mode:    receiver.SelectMode(cfg),
		logger:  slog.Default(),
		metrics: metrics.New(),
		errCh:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.dispatcher = dispatch.New(
		dispatch.WithLogger(b.logger),
		dispatch.WithMetrics(b.metrics),
		dispatch.WithMaxInFlight(b.maxInFlight),
	)
	b.httpClient = httpclient.New(httpclient.DefaultConfig())

	if !b.noSender {
		scfg := sender.DefaultConfig()
		if b.senderCfg != nil {
			scfg = *b.senderCfg
		}
		scfg.Token = cfg.Token
		if cfg.BaseURL != "" {
			scfg.BaseURL = cfg.BaseURL
		}
		s, err := sender.New(scfg, sender.WithLogger(b.logger))
		if err != nil {
			return nil, err
		}
		b.sender = s
	}

	return b, nil
}

// Mode returns the delivery mode selected at construction.
func (b *Bot) Mode() receiver.Mode {
	return b.mode
}

// Dispatcher exposes the update router for handler registration.
func (b *Bot) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Sender returns the outbound client, or nil when constructed WithoutSender.
func (b *Bot) Sender() *sender.Client {
	return b.sender
}

// Metrics returns the bot's Prometheus handler, for mounting on an
// operator-owned server in polling mode.
func (b *Bot) Metrics() http.Handler {
	return b.metrics.Handler()
}

// Handle registers a handler with an explicit predicate.
func (b *Bot) Handle(pred dispatch.Predicate, fn dispatch.HandlerFunc) {
	b.dispatcher.Handle(pred, fn)
}

// OnCommand registers a handler for the /name command.
func (b *Bot) OnCommand(name string, fn dispatch.HandlerFunc) {
	b.dispatcher.OnCommand(name, fn)
}

// OnText registers a handler for text messages containing substr.
func (b *Bot) OnText(substr string, fn dispatch.HandlerFunc) {
	b.dispatcher.OnText(substr, fn)
}

// OnAnyText registers a handler for every plain text message.
func (b *Bot) OnAnyText(fn dispatch.HandlerFunc) {
	b.dispatcher.OnAnyText(fn)
}

// OnSticker registers a handler for sticker messages.
func (b *Bot) OnSticker(fn dispatch.HandlerFunc) {
	b.dispatcher.OnSticker(fn)
}

// OnMedia registers a handler for non-sticker media messages.
func (b *Bot) OnMedia(fn dispatch.HandlerFunc) {
	b.dispatcher.OnMedia(fn)
}

// OnCallback registers a handler for callback queries with the data prefix.
func (b *Bot) OnCallback(prefix string, fn dispatch.HandlerFunc) {
	b.dispatcher.OnCallback(prefix, fn)
}

// Start brings the selected transport up and returns once updates can flow.
// In polling mode the poll loop runs until ctx is cancelled or Stop is
// called. In webhook mode the webhook is registered with Telegram first;
// a registration failure after the bounded retry budget is returned to the
// caller rather than retried forever.
func (b *Bot) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return receiver.ErrAlreadyRunning
	}

	b.logger.Info("starting bot", "mode", string(b.mode))

	switch b.mode {
	case receiver.ModeLongPolling:
		return b.startPolling(ctx)
	case receiver.ModeWebhook:
		return b.startWebhook(ctx)
	default:
		b.running.Store(false)
		return fmt.Errorf("gramflow: unknown mode %q", b.mode)
	}
}

func (b *Bot) startPolling(ctx context.Context) error {
	b.polling = receiver.NewPollingClient(b.dispatcher, b.logger, b.cfg,
		receiver.WithPollingMetrics(b.metrics))

	if err := b.polling.Start(ctx); err != nil {
		b.running.Store(false)
		return err
	}
	return nil
}

func (b *Bot) startWebhook(ctx context.Context) error {
	req := receiver.SetWebhookRequest{
		URL:                b.cfg.WebhookURL(),
		SecretToken:        b.cfg.WebhookSecret,
		DropPendingUpdates: b.cfg.DropPending,
		AllowedUpdates:     b.cfg.AllowedUpdates,
	}

	err := receiver.RegisterWebhook(ctx, b.httpClient, b.cfg.BaseURL, b.cfg.Token, req,
		resilience.DefaultRetryConfig())
	if err != nil {
		b.running.Store(false)
		return fmt.Errorf("gramflow: webhook registration failed: %w", err)
	}
	b.logger.Info("webhook registered", "url", req.URL, "drop_pending", req.DropPendingUpdates)

	handler := receiver.NewWebhookHandler(b.dispatcher, b.logger, b.cfg,
		receiver.WithWebhookMetrics(b.metrics))
	b.server = receiver.NewServer(handler, b.logger, b.cfg, b.metrics)

	go func() {
		if err := b.server.Start(); err != nil {
			b.logger.Error("webhook server failed", "error", err)
			select {
			case b.errCh <- err:
			default:
			}
		}
	}()

	return nil
}

// Err reports a fatal transport failure after Start, such as the webhook
// listener dying. The channel receives at most one error.
func (b *Bot) Err() <-chan error {
	return b.errCh
}

// Stop shuts the transport down and waits for in-flight handlers, bounded
// by ctx. Updates already handed to handlers finish; nothing new is accepted.
func (b *Bot) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return receiver.ErrNotRunning
	}

	b.logger.Info("stopping bot", "mode", string(b.mode))

	var errs []error
	if b.polling != nil {
		b.polling.Stop()
	}
	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := b.dispatcher.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("gramflow: dispatcher drain: %w", err))
	}

	b.logger.Info("bot stopped")
	return errors.Join(errs...)
}

// Running reports whether Start has been called and Stop has not.
func (b *Bot) Running() bool {
	return b.running.Load()
}
