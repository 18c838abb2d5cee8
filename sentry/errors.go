package sentry

import "fmt"

// FetchError reports a transport failure or a non-200 response.
type FetchError struct {
	URL    string
	Status int // zero when no response was received
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("sentry: bad HTTP response: %s", e.Reason)
	}
	return fmt.Sprintf("sentry: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FormatError reports a payload that does not match the expected signature or
// carries a value that cannot be parsed.
type FormatError struct {
	Reason string
	ID     string // record id, when the problem is inside one record
	Field  string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "sentry: unexpected data format: " + e.Reason
	if e.ID != "" {
		msg += " (id=" + e.ID
		if e.Field != "" {
			msg += " field=" + e.Field
		}
		msg += ")"
	} else if e.Field != "" {
		msg += " (field=" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }
