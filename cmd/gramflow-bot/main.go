// gramflow-bot is a runnable demonstration bot. With only a token it long
// polls; with PUBLIC_URL set it registers and serves a webhook instead.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prilive-com/gramflow"
	"github.com/prilive-com/gramflow/receiver"
	"github.com/prilive-com/gramflow/sender"
	"github.com/prilive-com/gramflow/tg"
)

func main() {
	// .env values never override the real environment.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := receiver.LoadConfig()
	if err != nil {
		return err
	}

	bot, err := gramflow.New(*cfg, gramflow.WithLogger(logger))
	if err != nil {
		return err
	}

	registerHandlers(bot, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Start(ctx); err != nil {
		return err
	}
	logger.Info("bot started", "mode", string(bot.Mode()))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-bot.Err():
		logger.Error("transport failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return bot.Stop(shutdownCtx)
}

// registerHandlers wires the demo handlers. "hello gramflow" triggers both
// the any-text handler and the phrase handler; every registered match fires.
func registerHandlers(bot *gramflow.Bot, logger *slog.Logger) {
	bot.OnCommand("start", func(ctx context.Context, u tg.Update) error {
		_, err := bot.Sender().SendMessage(ctx, sender.SendMessageRequest{
			ChatID: u.Chat().ID,
			Text:   "Hi! Send me text, a sticker, or /help.",
		})
		return err
	})

	bot.OnCommand("help", func(ctx context.Context, u tg.Update) error {
		_, err := bot.Sender().SendMessage(ctx, sender.SendMessageRequest{
			ChatID: u.Chat().ID,
			Text:   "I echo text, greet on \"gramflow\", and thumbs-up stickers.",
		})
		return err
	})

	bot.OnAnyText(func(ctx context.Context, u tg.Update) error {
		_, err := bot.Sender().SendMessage(ctx, sender.SendMessageRequest{
			ChatID: u.Chat().ID,
			Text:   fmt.Sprintf("echo: %s", u.Text()),
		})
		return err
	})

	bot.OnText("gramflow", func(ctx context.Context, u tg.Update) error {
		_, err := bot.Sender().SendMessage(ctx, sender.SendMessageRequest{
			ChatID: u.Chat().ID,
			Text:   "You said the magic word!",
		})
		return err
	})

	bot.OnSticker(func(ctx context.Context, u tg.Update) error {
		logger.Info("sticker received",
			"chat_id", u.Chat().ID,
			"file_id", u.Msg().Sticker.FileID,
		)
		_, err := bot.Sender().SendMessage(ctx, sender.SendMessageRequest{
			ChatID: u.Chat().ID,
			Text:   "Nice sticker 👍",
		})
		return err
	})

	bot.OnCallback("", func(ctx context.Context, u tg.Update) error {
		return bot.Sender().AnswerCallbackQuery(ctx, sender.AnswerCallbackQueryRequest{
			CallbackQueryID: u.CallbackQuery.ID,
			Text:            "Got it",
		})
	})
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
