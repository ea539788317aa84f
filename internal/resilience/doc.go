// Package resilience wraps the failure-handling primitives used across
// gramflow: retry with exponential backoff and crypto jitter, circuit
// breakers built on sony/gobreaker, and global plus per-key rate limiting
// built on golang.org/x/time/rate.
package resilience
