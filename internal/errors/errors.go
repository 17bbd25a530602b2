package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents malformed input local to a single call.
// It is never retried.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	msg := "validation failed"
	if e.Field != "" {
		msg += fmt.Sprintf(" for '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	return msg + ": " + e.Message
}

// FatalStartupError indicates the initial connection could not be validated.
// The process cannot proceed and must exit non-zero before serving traffic.
type FatalStartupError struct {
	Endpoint string
	Err      error
}

func (e FatalStartupError) Error() string {
	msg := "startup connection failed"
	if e.Endpoint != "" {
		msg += " for " + e.Endpoint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e FatalStartupError) Unwrap() error {
	return e.Err
}

// ReconnectError indicates a candidate configuration failed validation during
// a reconnect. The previously published state is preserved.
type ReconnectError struct {
	Endpoint string
	Err      error
}

func (e ReconnectError) Error() string {
	msg := "reconnect failed"
	if e.Endpoint != "" {
		msg += " for " + e.Endpoint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e ReconnectError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr ValidationError
	return errors.As(err, &verr)
}

// IsFatalStartup reports whether err is a FatalStartupError.
func IsFatalStartup(err error) bool {
	var ferr FatalStartupError
	return errors.As(err, &ferr)
}

// IsReconnect reports whether err is a ReconnectError.
func IsReconnect(err error) bool {
	var rerr ReconnectError
	return errors.As(err, &rerr)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(strings.ToLower(errStr), pattern) {
			return true
		}
	}

	return false
}
