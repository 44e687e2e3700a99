// Package model holds the error payload the CLI prints for failed runs.
package model

import (
	"encoding/json"
	"errors"
)

// ErrorCode provides a machine-readable error type for JSON output.
type ErrorCode string

const (
	ECNone        ErrorCode = ""
	ECSynthesis   ErrorCode = "ERR_SYNTHESIS"
	ECOscillation ErrorCode = "ERR_OSCILLATION"
	ECParse       ErrorCode = "ERR_PARSE"
	ECIO          ErrorCode = "ERR_IO"
	ECConfig      ErrorCode = "ERR_CONFIG"
	ECUnknown     ErrorCode = "ERR_UNKNOWN"
)

// CLIError is a uniform error payload for both human and JSON output.
type CLIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	// Path is the project file the error is about, if any.
	Path string `json:"path,omitempty"`

	err error
}

func (e *CLIError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func (e *CLIError) Unwrap() error { return e.err }

// JSON renders the payload.
func (e *CLIError) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Wrap generates a CLIError with code, keeping inner for errors.Is and
// as the detail.
func Wrap(code ErrorCode, msg string, inner error) *CLIError {
	e := &CLIError{Code: code, Message: msg, err: inner}
	if inner != nil {
		e.Detail = inner.Error()
	}
	return e
}

// CodeOf returns the code of the first CLIError in err's tree, or
// ECUnknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ECNone
	}
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ECUnknown
}
