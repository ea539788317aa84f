// Package dispatch routes incoming Telegram updates to registered handlers.
//
// Handlers are registered at process start as predicate/callback pairs.
// Registration order is match-attempt order, and every handler whose
// predicate matches fires for the update - a generic text handler and a
// specific phrase handler both run for the same message. A handler error or
// panic is isolated per invocation: it is logged and counted, and the
// handlers registered after it still run.
//
// Two entry points exist. Dispatch runs all matching handlers synchronously
// on the caller. Go acknowledges immediately and runs the dispatch on a
// tracked goroutine, which is what the webhook receiver uses to ack Telegram
// fast; Drain waits for those in-flight dispatches during shutdown, bounded
// by its context deadline.
package dispatch
