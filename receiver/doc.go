// Package receiver implements the two Telegram update transports and the
// selection between them.
//
// Exactly one delivery mode is active per process: long polling when no
// public URL is configured, webhook when one is. Telegram rejects concurrent
// use of getUpdates and a webhook for the same token, so the polling client
// deletes any registered webhook before it starts, and mode selection never
// falls back at runtime - switching modes takes a restart with corrected
// configuration.
//
// Both transports hand every update to a Sink (in practice the dispatch
// package's Dispatcher): the polling loop delivers serially, the webhook
// handler acknowledges each POST immediately and dispatches asynchronously.
package receiver
