// Package gramflow delivers Telegram bot updates to registered handlers.
//
// A Bot wires three pieces together: a transport that obtains updates from
// Telegram (long polling or webhook, chosen by configuration), a dispatcher
// that routes each update to every matching handler, and an optional sender
// for outbound API calls. Construction is explicit; there is no package-level
// instance, so several independent bots can run in one process.
//
// Minimal polling-mode usage:
//
//	cfg, err := receiver.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	bot, err := gramflow.New(*cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	bot.OnCommand("start", func(ctx context.Context, u tg.Update) error {
//		_, err := bot.Sender().SendMessage(ctx, sender.SendMessageRequest{
//			ChatID: u.Chat().ID, Text: "hello",
//		})
//		return err
//	})
//	if err := bot.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer bot.Stop(context.Background())
//
// Setting PUBLIC_URL (or Config.PublicURL) switches the same program to
// webhook delivery; nothing else changes.
package gramflow
