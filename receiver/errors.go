package receiver

import "errors"

// Sentinel errors - use with errors.Is()
var (
	ErrAlreadyRunning = errors.New("gramflow/receiver: already running")
	ErrNotRunning     = errors.New("gramflow/receiver: not running")
	ErrTokenRequired  = errors.New("gramflow/receiver: bot token required")
	ErrSinkRequired   = errors.New("gramflow/receiver: update sink required")
)
