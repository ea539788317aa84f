// Package scrub removes sensitive data from errors before they are logged
// or returned to callers.
package scrub

import (
	"strings"

	"github.com/prilive-com/gramflow/tg"
)

// TokenFromError removes the bot token from an error message.
// Go's http.Client.Do() embeds the request URL, which contains the token,
// in transport error strings. The error chain stays intact for
// errors.Is/As via Unwrap().
func TokenFromError(err error, token tg.SecretToken) error {
	if err == nil {
		return nil
	}
	raw := token.Value()
	if raw == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, raw) {
		return err
	}
	return &scrubbedError{
		msg: strings.ReplaceAll(msg, raw, "[REDACTED]"),
		err: err,
	}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
