package receiver

import (
	"context"

	"github.com/prilive-com/gramflow/tg"
)

// Mode defines how the receiver gets updates from Telegram.
type Mode string

const (
	ModeWebhook     Mode = "webhook"
	ModeLongPolling Mode = "longpolling"
)

// SelectMode picks the delivery mode from configuration: webhook when a
// public URL is present, long polling otherwise. The choice depends on
// nothing else and there is no fallback between modes; an operator switches
// by restarting with corrected configuration.
func SelectMode(cfg Config) Mode {
	if cfg.PublicURL != "" {
		return ModeWebhook
	}
	return ModeLongPolling
}

// Sink consumes updates produced by a transport.
// Dispatch runs matching handlers before returning; Go acknowledges
// immediately and runs them on a tracked goroutine.
type Sink interface {
	Dispatch(ctx context.Context, u tg.Update)
	Go(ctx context.Context, u tg.Update)
}
