// Package httpclient builds the hardened HTTP client shared by the polling
// client, the webhook registration calls, and the sender.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	TLSTimeout     time.Duration
	IdleTimeout    time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

// DefaultConfig returns defaults tuned for the Telegram API.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:      30 * time.Second,
		ConnectTimeout:      10 * time.Second,
		TLSTimeout:          10 * time.Second,
		IdleTimeout:         90 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
	}
}

// New creates an HTTP client with the given configuration.
// TLS 1.2 is the floor; HTTP/2 is attempted.
func New(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			TLSHandshakeTimeout:   cfg.TLSTimeout,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:       cfg.IdleTimeout,
			ResponseHeaderTimeout: cfg.RequestTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
}

// NewLongPoll creates a client whose timeouts accommodate a long-poll
// request that intentionally holds the connection open for pollTimeout
// seconds before the server responds.
func NewLongPoll(pollTimeout int) *http.Client {
	cfg := DefaultConfig()
	cfg.RequestTimeout = time.Duration(pollTimeout+10) * time.Second
	client := New(cfg)
	if t, ok := client.Transport.(*http.Transport); ok {
		t.ResponseHeaderTimeout = time.Duration(pollTimeout+5) * time.Second
	}
	return client
}
