// Package sender is the outbound half of gramflow: a rate-limited, retrying
// Telegram Bot API client for the calls handlers typically make in response
// to an update (send a message, send a sticker, answer a callback query).
//
// Every call passes through a global limiter, a per-chat limiter, and a
// circuit breaker before hitting the network. Retries honor Telegram's
// retry_after hint when the API answers 429.
package sender
