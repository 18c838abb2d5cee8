package monitor

import (
	"errors"

	"asentry/config"
	"asentry/sentry"
)

// State is a stage of the poll control loop.
type State int32

const (
	StateStartup State = iota
	StateConnecting
	StatePoll
	StateDiff
	StateAlert
	StateIdle
	StateWait
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "STARTUP"
	case StateConnecting:
		return "CONNECTING"
	case StatePoll:
		return "POLL"
	case StateDiff:
		return "DIFF"
	case StateAlert:
		return "ALERT"
	case StateIdle:
		return "IDLE"
	case StateWait:
		return "WAIT"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// ErrorClass names the kind of a fatal error for logs and the diagnostic
// screen.
func ErrorClass(err error) string {
	var fetchErr *sentry.FetchError
	var formatErr *sentry.FormatError
	var cfgErr *config.ConfigError
	switch {
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &cfgErr):
		return "config"
	default:
		return "error"
	}
}
